package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llmguardian/gateway/internal/audit"
	"github.com/llmguardian/gateway/internal/config"
	"github.com/llmguardian/gateway/internal/sensitive"
)

// captureStore records every batch it is handed. A non-nil err makes all
// saves fail.
type captureStore struct {
	mu      sync.Mutex
	batches [][]audit.Record
	err     error
}

func (c *captureStore) SaveBatch(_ context.Context, records []audit.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.batches = append(c.batches, records)
	return nil
}

func (c *captureStore) ListByRequest(context.Context, string) ([]audit.Record, error) {
	return nil, nil
}
func (c *captureStore) CountByKind(context.Context) (map[string]int64, error) { return nil, nil }
func (c *captureStore) CountSince(context.Context, time.Time) (int64, error) { return 0, nil }
func (c *captureStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (c *captureStore) Ping(context.Context) error { return nil }
func (c *captureStore) Close() error               { return nil }

func (c *captureStore) allBatches() [][]audit.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]audit.Record, len(c.batches))
	copy(out, c.batches)
	return out
}

var _ audit.Store = (*captureStore)(nil)

// blockingStore parks inside SaveBatch until released, so tests can hold
// a worker busy deterministically.
type blockingStore struct {
	captureStore
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) SaveBatch(ctx context.Context, records []audit.Record) error {
	b.started <- struct{}{}
	<-b.release
	return b.captureStore.SaveBatch(ctx, records)
}

func contextWithEmail(t *testing.T) *sensitive.Context {
	t.Helper()
	sctx := sensitive.NewContext()
	sctx.AddMapping("[EMAIL_TOKEN_a1b2c3]", "john.doe@example.com", "EMAIL", 14, 34)
	return sctx
}

// ─── Conversion ──────────────────────────────────────────────────────────────

func TestNewRecord(t *testing.T) {
	detected := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := sensitive.Detection{
		Kind:           "EMAIL",
		Token:          "[EMAIL_TOKEN_a1b2c3]",
		OriginalLength: 20,
		DetectedAt:     detected,
		Start:          14,
		End:            34,
	}

	r := audit.NewRecord("req-1", d, false)
	if r.ID == "" {
		t.Error("record has no ID")
	}
	if r.RequestID != "req-1" || r.Kind != "EMAIL" || r.Token != d.Token {
		t.Errorf("record = %+v", r)
	}
	if r.Action != audit.ActionRedacted {
		t.Errorf("Action = %q, want %q", r.Action, audit.ActionRedacted)
	}
	if !r.CreatedAt.Equal(detected) {
		t.Errorf("CreatedAt = %v, want detection time", r.CreatedAt)
	}
	if r.PositionStart != nil || r.PositionEnd != nil {
		t.Error("positions kept below the detailed level")
	}

	detailed := audit.NewRecord("req-1", d, true)
	if detailed.PositionStart == nil || *detailed.PositionStart != 14 {
		t.Errorf("PositionStart = %v, want 14", detailed.PositionStart)
	}
	if detailed.PositionEnd == nil || *detailed.PositionEnd != 34 {
		t.Errorf("PositionEnd = %v, want 34", detailed.PositionEnd)
	}
}

// ─── Sink behavior ───────────────────────────────────────────────────────────

func TestSinkPersistsDetections(t *testing.T) {
	store := &captureStore{}
	sink := audit.NewSink(store, config.AuditConfig{Enabled: true, Level: "standard"})

	sctx := sensitive.NewContext()
	sctx.AddMapping("[EMAIL_TOKEN_a1b2c3]", "john.doe@example.com", "EMAIL", 14, 34)
	sctx.AddMapping("[PHONE_TOKEN_d4e5f6]", "555-123-4567", "PHONE", 40, 52)

	sink.Submit(sctx)
	sink.Close()

	batches := store.allBatches()
	if len(batches) != 1 {
		t.Fatalf("store saw %d batches, want 1", len(batches))
	}
	records := batches[0]
	if len(records) != 2 {
		t.Fatalf("batch holds %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.RequestID != sctx.RequestID {
			t.Errorf("RequestID = %q, want %q", r.RequestID, sctx.RequestID)
		}
		if r.PositionStart != nil {
			t.Error("standard level stored positions")
		}
		if r.Token == "john.doe@example.com" || r.Token == "555-123-4567" {
			t.Errorf("record carries an original value: %q", r.Token)
		}
	}
	if records[0].Kind != "EMAIL" || records[0].OriginalLength != len("john.doe@example.com") {
		t.Errorf("first record = %+v", records[0])
	}
	if got := sink.Persisted(); got != 2 {
		t.Errorf("Persisted() = %d, want 2", got)
	}
}

func TestSinkDetailedLevelKeepsPositions(t *testing.T) {
	store := &captureStore{}
	sink := audit.NewSink(store, config.AuditConfig{Enabled: true, Level: "detailed"})

	sink.Submit(contextWithEmail(t))
	sink.Close()

	batches := store.allBatches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("unexpected batches: %v", batches)
	}
	r := batches[0][0]
	if r.PositionStart == nil || *r.PositionStart != 14 {
		t.Errorf("PositionStart = %v, want 14", r.PositionStart)
	}
	if r.PositionEnd == nil || *r.PositionEnd != 34 {
		t.Errorf("PositionEnd = %v, want 34", r.PositionEnd)
	}
}

func TestSinkDisabled(t *testing.T) {
	store := &captureStore{}

	for _, cfg := range []config.AuditConfig{
		{Enabled: false, Level: "standard"},
		{Enabled: true, Level: "none"},
	} {
		sink := audit.NewSink(store, cfg)
		if sink.Enabled() {
			t.Errorf("Enabled() = true for %+v", cfg)
		}
		sink.Submit(contextWithEmail(t))
		sink.Close()
	}

	if got := store.allBatches(); len(got) != 0 {
		t.Errorf("disabled sink persisted %d batches", len(got))
	}
}

func TestSinkSkipsEmptyContexts(t *testing.T) {
	store := &captureStore{}
	sink := audit.NewSink(store, config.AuditConfig{Enabled: true, Level: "standard"})

	sink.Submit(sensitive.NewContext())
	sink.Submit(nil)
	sink.Close()

	if got := store.allBatches(); len(got) != 0 {
		t.Errorf("empty context produced %d batches", len(got))
	}
}

func TestSinkDropsOnOverflow(t *testing.T) {
	store := &blockingStore{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sink := audit.NewSink(store, config.AuditConfig{
		Enabled: true, Level: "standard", QueueSize: 1, Workers: 1,
	})

	sink.Submit(contextWithEmail(t)) // picked up by the worker
	<-store.started                  // worker is now parked in SaveBatch
	sink.Submit(contextWithEmail(t)) // fills the queue
	sink.Submit(contextWithEmail(t)) // no room left

	if got := sink.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	close(store.release)
	sink.Close()

	if got := len(store.allBatches()); got != 2 {
		t.Errorf("store saw %d batches, want 2", got)
	}
}

func TestSinkCountsIOFailures(t *testing.T) {
	store := &captureStore{err: errors.New("connection refused")}
	sink := audit.NewSink(store, config.AuditConfig{Enabled: true, Level: "standard"})

	sink.Submit(contextWithEmail(t))
	sink.Close()

	if got := sink.IOFailures(); got != 1 {
		t.Errorf("IOFailures() = %d, want 1", got)
	}
	if got := sink.Persisted(); got != 0 {
		t.Errorf("Persisted() = %d, want 0", got)
	}
}

func TestSinkCloseTwice(t *testing.T) {
	sink := audit.NewSink(&captureStore{}, config.AuditConfig{Enabled: true, Level: "standard"})
	sink.Close()
	sink.Close()
}
