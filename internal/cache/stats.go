package cache

import "sync/atomic"

// Stats tallies lookups for one cache tier. All methods are safe for
// concurrent use; tiers update it, analytics and metrics read it.
type Stats struct {
	tier string

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	requests  atomic.Int64
	errors    atomic.Int64
	size      atomic.Int64
}

// NewStats returns an empty tally labelled with the tier name.
func NewStats(tier string) *Stats {
	return &Stats{tier: tier}
}

func (s *Stats) RecordHit() {
	s.hits.Add(1)
	s.requests.Add(1)
}

func (s *Stats) RecordMiss() {
	s.misses.Add(1)
	s.requests.Add(1)
}

func (s *Stats) RecordEviction() { s.evictions.Add(1) }

// RecordError counts an I/O failure against the tier.
func (s *Stats) RecordError() { s.errors.Add(1) }

// SetSize records the current entry count.
func (s *Stats) SetSize(n int64) { s.size.Store(n) }

func (s *Stats) Tier() string     { return s.tier }
func (s *Stats) Hits() int64      { return s.hits.Load() }
func (s *Stats) Misses() int64    { return s.misses.Load() }
func (s *Stats) Evictions() int64 { return s.evictions.Load() }
func (s *Stats) Requests() int64  { return s.requests.Load() }
func (s *Stats) Errors() int64    { return s.errors.Load() }
func (s *Stats) Size() int64      { return s.size.Load() }

// HitRate returns hits as a percentage of all lookups, 0 when idle.
func (s *Stats) HitRate() float64 {
	total := s.requests.Load()
	if total == 0 {
		return 0
	}
	return float64(s.hits.Load()) * 100 / float64(total)
}

// Snapshot is a point-in-time copy of the tallies for the analytics
// endpoints.
type Snapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Requests  int64   `json:"totalRequests"`
	Errors    int64   `json:"errors"`
	Size      int64   `json:"size"`
	HitRate   float64 `json:"hitRate"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Hits:      s.Hits(),
		Misses:    s.Misses(),
		Evictions: s.Evictions(),
		Requests:  s.Requests(),
		Errors:    s.Errors(),
		Size:      s.Size(),
		HitRate:   s.HitRate(),
	}
}
