package cache_test

import (
	"testing"
	"time"

	"github.com/llmguardian/gateway/internal/cache"
)

func newTestLocal(t *testing.T) *cache.Local {
	t.Helper()
	return cache.NewLocal(10, time.Minute)
}

// ─── Lookup ──────────────────────────────────────────────────────────────────

func TestLocalPutGet(t *testing.T) {
	c := newTestLocal(t)

	c.Put("llm:aaaaaaaaaaaa", "cached response")

	got, ok := c.Get("llm:aaaaaaaaaaaa")
	if !ok || got != "cached response" {
		t.Fatalf("Get = (%q, %v), want (%q, true)", got, ok, "cached response")
	}
	stats := c.Stats()
	if stats.Hits() != 1 || stats.Requests() != 1 {
		t.Errorf("stats = %d hits / %d requests, want 1/1", stats.Hits(), stats.Requests())
	}
	if stats.Size() != 1 {
		t.Errorf("Size() = %d, want 1", stats.Size())
	}
}

func TestLocalMiss(t *testing.T) {
	c := newTestLocal(t)

	if _, ok := c.Get("llm:missing00000"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}
	if c.Stats().Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", c.Stats().Misses())
	}
}

func TestLocalOverwriteRefreshes(t *testing.T) {
	c := newTestLocal(t)

	c.Put("k", "first")
	c.Put("k", "second")

	if got, _ := c.Get("k"); got != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if c.Stats().Evictions() != 0 {
		t.Errorf("Evictions() = %d, want 0", c.Stats().Evictions())
	}
}

// ─── Eviction ────────────────────────────────────────────────────────────────

func TestLocalLRUEviction(t *testing.T) {
	c := cache.NewLocal(2, time.Minute)

	c.Put("a", "1")
	c.Put("b", "2")
	if _, ok := c.Get("a"); !ok { // refresh a's recency, b is now oldest
		t.Fatal("warm-up Get(a) missed")
	}
	c.Put("c", "3")

	if c.Contains("b") {
		t.Error("b survived eviction, want least recently used dropped")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Error("a and c should both be present")
	}
	if c.Stats().Evictions() != 1 {
		t.Errorf("Evictions() = %d, want 1", c.Stats().Evictions())
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLocalExpiry(t *testing.T) {
	c := cache.NewLocal(10, time.Nanosecond)

	c.Put("k", "v")

	if _, ok := c.Get("k"); ok {
		t.Fatal("Get returned an expired entry")
	}
	if c.Contains("k") {
		t.Error("Contains reported an expired entry")
	}
	stats := c.Stats()
	if stats.Misses() != 1 || stats.Evictions() != 1 {
		t.Errorf("stats = %d misses / %d evictions, want 1/1", stats.Misses(), stats.Evictions())
	}
	if stats.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after lazy removal", stats.Size())
	}
}

// ─── Maintenance ─────────────────────────────────────────────────────────────

func TestLocalEvict(t *testing.T) {
	c := newTestLocal(t)
	c.Put("k", "v")

	if !c.Evict("k") {
		t.Error("Evict on present key = false, want true")
	}
	if c.Evict("k") {
		t.Error("Evict on absent key = true, want false")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLocalClear(t *testing.T) {
	c := newTestLocal(t)
	c.Put("a", "1")
	c.Put("b", "2")

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if c.Stats().Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Stats().Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get after Clear reported a hit")
	}
}

func TestLocalHitRate(t *testing.T) {
	c := newTestLocal(t)
	c.Put("k", "v")

	c.Get("k")
	c.Get("absent")

	if rate := c.Stats().HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
}

func TestLocalDefaults(t *testing.T) {
	c := cache.NewLocal(0, 0)

	c.Put("k", "v")
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("Get = (%q, %v), want (%q, true)", got, ok, "v")
	}
}
