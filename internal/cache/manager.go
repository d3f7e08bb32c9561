// Package cache provides the gateway's two-tier response cache: a
// bounded in-process LRU in front of an optional Redis tier, with a
// read-through manager that promotes network hits into the local tier.
// Only redacted prompts ever reach the key derivation, so neither tier
// stores sensitive values.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// Manager fronts the two tiers with read-through semantics.
type Manager struct {
	l1   *Local
	l2   RemoteTier
	keys KeyMaker
}

// NewManager wires the tiers together. A nil l2 is replaced with a
// disabled remote tier.
func NewManager(l1 *Local, l2 RemoteTier, keys KeyMaker) *Manager {
	if l2 == nil {
		l2 = NewRemote(nil, config.L2Config{})
	}
	return &Manager{l1: l1, l2: l2, keys: keys}
}

// Key derives the cache key for a prompt/model/params triple.
func (m *Manager) Key(prompt, modelID, params string) string {
	return m.keys.Key(prompt, modelID, params)
}

// Get checks the local tier first, then the network tier. A network
// hit is promoted locally so the next lookup stays in process.
func (m *Manager) Get(ctx context.Context, key string) (string, bool) {
	if value, ok := m.l1.Get(key); ok {
		log.Debug().Str("key", key).Msg("Cache hit (L1)")
		return value, true
	}
	if value, ok := m.l2.Get(ctx, key); ok {
		m.l1.Put(key, value)
		log.Debug().Str("key", key).Msg("Cache hit (L2, promoted)")
		return value, true
	}
	log.Debug().Str("key", key).Msg("Cache miss")
	return "", false
}

// Put writes to both tiers.
func (m *Manager) Put(ctx context.Context, key, value string) {
	m.l1.Put(key, value)
	m.l2.Put(ctx, key, value)
}

// Evict removes key from both tiers.
func (m *Manager) Evict(ctx context.Context, key string) {
	m.l1.Evict(key)
	m.l2.Evict(ctx, key)
}

// Clear empties both tiers. The network tier only drops keys under the
// configured prefix.
func (m *Manager) Clear(ctx context.Context) {
	m.l1.Clear()
	removed := m.l2.Clear(ctx)
	log.Info().Int64("l2Removed", removed).Msg("Cache cleared")
}

// Contains reports whether either tier holds key.
func (m *Manager) Contains(ctx context.Context, key string) bool {
	return m.l1.Contains(key) || m.l2.Contains(ctx, key)
}

func (m *Manager) L1Stats() *Stats { return m.l1.Stats() }
func (m *Manager) L2Stats() *Stats { return m.l2.Stats() }
func (m *Manager) L2Enabled() bool { return m.l2.Enabled() }

// CombinedSnapshot merges both tiers' tallies for the analytics
// surface.
type CombinedSnapshot struct {
	L1             Snapshot `json:"l1"`
	L2             Snapshot `json:"l2"`
	TotalHits      int64    `json:"totalHits"`
	TotalMisses    int64    `json:"totalMisses"`
	OverallHitRate float64  `json:"overallHitRate"`
}

// Combined snapshots both tiers. Every lookup passes through the local
// tier, so its request count is the denominator for the overall rate.
func (m *Manager) Combined() CombinedSnapshot {
	l1 := m.l1.Stats().Snapshot()
	l2 := m.l2.Stats().Snapshot()
	c := CombinedSnapshot{
		L1:          l1,
		L2:          l2,
		TotalHits:   l1.Hits + l2.Hits,
		TotalMisses: l1.Misses + l2.Misses,
	}
	if l1.Requests > 0 {
		c.OverallHitRate = float64(c.TotalHits) * 100 / float64(l1.Requests)
	}
	return c
}

// Healthy runs a write-read-delete probe per tier. The network tier is
// skipped when disabled.
func (m *Manager) Healthy(ctx context.Context) bool {
	key := m.keys.Prefix() + "health_" + strconv.FormatInt(time.Now().UnixNano(), 10)

	m.l1.Put(key, "ok")
	if v, ok := m.l1.Get(key); !ok || v != "ok" {
		return false
	}
	m.l1.Evict(key)

	if !m.l2.Enabled() {
		return true
	}
	m.l2.PutWithTTL(ctx, key, "ok", time.Minute)
	if v, ok := m.l2.Get(ctx, key); !ok || v != "ok" {
		return false
	}
	m.l2.Evict(ctx, key)
	return true
}
