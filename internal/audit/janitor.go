package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often the janitor enforces retention.
const DefaultSweepInterval = 24 * time.Hour

// DefaultRetentionDays is how long records are kept when unconfigured.
const DefaultRetentionDays = 90

// Janitor deletes audit records past the retention window. It sweeps once
// on startup and then on every interval tick.
type Janitor struct {
	store         Store
	retentionDays int
	interval      time.Duration
}

// NewJanitor creates a retention janitor for the given store.
func NewJanitor(store Store, retentionDays int, interval time.Duration) *Janitor {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if interval < time.Minute {
		interval = DefaultSweepInterval
	}
	return &Janitor{store: store, retentionDays: retentionDays, interval: interval}
}

// Start runs the janitor until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Int("retentionDays", j.retentionDays).
		Msg("Audit janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Audit janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if _, err := j.Sweep(ctx); err != nil {
		log.Warn().Err(err).Msg("Audit retention sweep failed")
	}
}

// Sweep deletes records older than the retention window and returns how
// many were removed. Exposed for manual cleanup triggers.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().
			Int64("deleted", deleted).
			Int("retentionDays", j.retentionDays).
			Msg("Expired audit records removed")
	}
	return deleted, nil
}
