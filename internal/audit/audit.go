// Package audit persists metadata about redacted values for compliance
// reporting. A record carries the generated token and the original's
// length, never the original value itself. Writes happen off the request
// path through a bounded worker pool, and a janitor trims records past
// the retention window.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/llmguardian/gateway/internal/sensitive"
)

// Audit levels. Everything except "none" persists one record per
// detection; "detailed" additionally stores the match positions.
const (
	LevelNone     = "none"
	LevelMinimal  = "minimal"
	LevelStandard = "standard"
	LevelDetailed = "detailed"
)

// ActionRedacted is the only action the gateway currently takes on a
// sensitive value.
const ActionRedacted = "REDACTED"

// Record is the persisted form of one detection.
type Record struct {
	ID             string
	RequestID      string
	Kind           string
	Token          string
	OriginalLength int
	Action         string
	PositionStart  *int
	PositionEnd    *int
	CreatedAt      time.Time
}

// NewRecord converts a detection into its persisted form. Positions are
// kept only at the detailed audit level.
func NewRecord(requestID string, d sensitive.Detection, detailed bool) Record {
	r := Record{
		ID:             uuid.NewString(),
		RequestID:      requestID,
		Kind:           d.Kind,
		Token:          d.Token,
		OriginalLength: d.OriginalLength,
		Action:         ActionRedacted,
		CreatedAt:      d.DetectedAt,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if detailed {
		start, end := d.Start, d.End
		r.PositionStart = &start
		r.PositionEnd = &end
	}
	return r
}

// Store is the persistence contract for audit records. The sink and the
// analytics endpoints depend on this interface, making it easy to swap
// between in-memory (tests, local dev) and PostgreSQL (production).
type Store interface {
	// SaveBatch persists all records from one request in a single write.
	SaveBatch(ctx context.Context, records []Record) error

	// ListByRequest returns every record for a request, oldest first.
	ListByRequest(ctx context.Context, requestID string) ([]Record, error)

	// CountByKind returns detection totals grouped by kind.
	CountByKind(ctx context.Context) (map[string]int64, error)

	// CountSince returns how many records were created at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// DeleteOlderThan removes records created before cutoff and returns
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}
