package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
	"github.com/llmguardian/gateway/internal/sensitive"
)

const (
	// DefaultQueueSize bounds how many request batches can wait for a worker.
	DefaultQueueSize = 1024
	// DefaultWorkers is the number of goroutines draining the queue.
	DefaultWorkers = 2

	saveTimeout = 5 * time.Second
)

// Sink writes detection metadata to the store without blocking the request
// path. Submissions go onto a bounded queue drained by a fixed worker pool;
// when the queue is full the batch is dropped and counted, never waited on.
type Sink struct {
	store    Store
	queue    chan []Record
	enabled  bool
	detailed bool

	wg   sync.WaitGroup
	quit chan struct{}
	stop sync.Once

	drops      atomic.Int64
	ioFailures atomic.Int64
	persisted  atomic.Int64
}

// NewSink starts the worker pool. A sink built with audit disabled (or
// level "none") accepts submissions and discards them.
func NewSink(store Store, cfg config.AuditConfig) *Sink {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	s := &Sink{
		store:    store,
		queue:    make(chan []Record, queueSize),
		enabled:  cfg.Enabled && cfg.Level != LevelNone,
		detailed: cfg.Level == LevelDetailed,
		quit:     make(chan struct{}),
	}

	if !s.enabled {
		log.Info().Msg("Audit persistence disabled")
		return s
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	log.Info().
		Str("level", cfg.Level).
		Int("queueSize", queueSize).
		Int("workers", workers).
		Msg("Audit sink started")
	return s
}

// Submit queues one request's detections for persistence and returns
// immediately. Requests without detections are skipped.
func (s *Sink) Submit(sctx *sensitive.Context) {
	if !s.enabled || sctx == nil {
		return
	}
	detections := sctx.Detections()
	if len(detections) == 0 {
		return
	}

	records := make([]Record, len(detections))
	for i, d := range detections {
		records[i] = NewRecord(sctx.RequestID, d, s.detailed)
	}

	select {
	case s.queue <- records:
	default:
		s.drops.Add(1)
		log.Warn().
			Str("requestId", sctx.RequestID).
			Int("records", len(records)).
			Msg("Audit queue full, dropping batch")
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for {
		select {
		case batch := <-s.queue:
			s.persist(batch)
		case <-s.quit:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case batch := <-s.queue:
					s.persist(batch)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) persist(batch []Record) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.store.SaveBatch(ctx, batch); err != nil {
		s.ioFailures.Add(1)
		log.Error().Err(err).
			Str("requestId", batch[0].RequestID).
			Int("records", len(batch)).
			Msg("Failed to persist audit batch")
		return
	}

	s.persisted.Add(int64(len(batch)))
	log.Debug().
		Str("requestId", batch[0].RequestID).
		Int("records", len(batch)).
		Msg("Audit batch persisted")
}

// Close drains the queue and stops the workers. Safe to call twice.
func (s *Sink) Close() {
	s.stop.Do(func() { close(s.quit) })
	s.wg.Wait()
}

// Enabled reports whether detections are being persisted.
func (s *Sink) Enabled() bool { return s.enabled }

// Dropped returns how many batches were rejected by a full queue.
func (s *Sink) Dropped() int64 { return s.drops.Load() }

// IOFailures returns how many batches failed to persist.
func (s *Sink) IOFailures() int64 { return s.ioFailures.Load() }

// Persisted returns how many records reached the store.
func (s *Sink) Persisted() int64 { return s.persisted.Load() }
