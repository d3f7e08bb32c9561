package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// DefaultRemoteTTL is the per-entry lifetime in the network tier.
const DefaultRemoteTTL = 24 * time.Hour

// RemoteTier is the network-backed half of the cache. It is an
// interface so the manager can be exercised without a live Redis.
type RemoteTier interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
	PutWithTTL(ctx context.Context, key, value string, ttl time.Duration)
	Evict(ctx context.Context, key string)
	Clear(ctx context.Context) int64
	Contains(ctx context.Context, key string) bool
	Enabled() bool
	Stats() *Stats
}

// Remote stores entries in Redis with per-entry TTLs. Every operation
// fails open: an unreachable Redis degrades to misses and dropped
// writes, never to a request failure. When disabled it is a no-op that
// records nothing.
type Remote struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
	prefix  string
	stats   *Stats
}

// NewRemote builds the tier. A nil client forces it disabled.
func NewRemote(client *redis.Client, cfg config.L2Config) *Remote {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = DefaultRemoteTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Remote{
		client:  client,
		enabled: cfg.Enabled && client != nil,
		ttl:     ttl,
		prefix:  prefix,
		stats:   NewStats("l2"),
	}
}

func (r *Remote) Enabled() bool { return r.enabled }

func (r *Remote) Stats() *Stats { return r.stats }

// Get looks up key. Read errors count as misses.
func (r *Remote) Get(ctx context.Context, key string) (string, bool) {
	if !r.enabled {
		return "", false
	}
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.stats.RecordMiss()
		return "", false
	}
	if err != nil {
		r.stats.RecordError()
		r.stats.RecordMiss()
		log.Error().Err(err).Str("key", key).Msg("L2 cache read failed, treating as miss")
		return "", false
	}
	r.stats.RecordHit()
	return value, true
}

// Put stores key with the configured TTL.
func (r *Remote) Put(ctx context.Context, key, value string) {
	r.PutWithTTL(ctx, key, value, r.ttl)
}

// PutWithTTL stores key with an explicit lifetime. Write errors drop
// the entry silently.
func (r *Remote) PutWithTTL(ctx context.Context, key, value string, ttl time.Duration) {
	if !r.enabled {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.stats.RecordError()
		log.Error().Err(err).Str("key", key).Msg("L2 cache write failed, dropping entry")
	}
}

// Evict removes key.
func (r *Remote) Evict(ctx context.Context, key string) {
	if !r.enabled {
		return
	}
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.stats.RecordError()
		log.Error().Err(err).Str("key", key).Msg("L2 cache delete failed")
		return
	}
	if deleted > 0 {
		r.stats.RecordEviction()
	}
}

// Clear deletes every entry under the configured prefix and returns
// the number removed.
func (r *Remote) Clear(ctx context.Context) int64 {
	if !r.enabled {
		return 0
	}
	var removed int64
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.stats.RecordError()
			log.Error().Err(err).Str("key", iter.Val()).Msg("L2 cache delete failed during clear")
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		r.stats.RecordError()
		log.Error().Err(err).Msg("L2 cache scan failed during clear")
	}
	log.Info().Int64("removed", removed).Str("prefix", r.prefix).Msg("L2 cache cleared")
	return removed
}

// Contains reports whether key exists. Errors read as absent.
func (r *Remote) Contains(ctx context.Context, key string) bool {
	if !r.enabled {
		return false
	}
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.stats.RecordError()
		return false
	}
	return n > 0
}
