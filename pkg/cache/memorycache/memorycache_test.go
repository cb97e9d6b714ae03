package memorycache

import (
	"context"
	"testing"
	"time"
)

func newCache(t *testing.T, maxSize int64) *Cache {
	t.Helper()
	c, err := New(&Config{
		MaxSizeBytes:  maxSize,
		DefaultTTL:    time.Minute,
		EnableMetrics: true,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	c := newCache(t, 1024*1024)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	value, found := c.Get(ctx, "key1")
	if !found {
		t.Error("expected to find key1")
	}
	if value != "value1" {
		t.Errorf("expected value1, got %v", value)
	}

	if _, found := c.Get(ctx, "nonexistent"); found {
		t.Error("expected not to find nonexistent key")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := newCache(t, 1024*1024)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", "value1", 50*time.Millisecond); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	if _, found := c.Get(ctx, "key1"); !found {
		t.Error("expected to find key1 before expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, found := c.Get(ctx, "key1"); found {
		t.Error("expected not to find key1 after expiration")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on access, len = %d", c.Len())
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c, err := New(&Config{
		MaxSizeBytes: 1024,
		DefaultTTL:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ctx := context.Background()

	// Zero TTL falls back to the default
	if err := c.Set(ctx, "key1", "value1", 0); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, found := c.Get(ctx, "key1"); found {
		t.Error("entry with default TTL should have expired")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	// Roughly two entries worth of capacity
	c := newCache(t, 220)
	ctx := context.Background()

	if err := c.Set(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("failed to set a: %v", err)
	}
	if err := c.Set(ctx, "b", 2, time.Minute); err != nil {
		t.Fatalf("failed to set b: %v", err)
	}

	// Touch "a" so "b" becomes the eviction candidate
	if _, found := c.Get(ctx, "a"); !found {
		t.Fatal("expected to find a")
	}

	if err := c.Set(ctx, "c", 3, time.Minute); err != nil {
		t.Fatalf("failed to set c: %v", err)
	}

	if _, found := c.Get(ctx, "b"); found {
		t.Error("expected b to be evicted")
	}
	if _, found := c.Get(ctx, "a"); !found {
		t.Error("expected a to survive")
	}
	if _, found := c.Get(ctx, "c"); !found {
		t.Error("expected c to survive")
	}
}

func TestCache_Delete(t *testing.T) {
	c := newCache(t, 1024*1024)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, found := c.Get(ctx, "key1"); found {
		t.Error("expected key1 to be deleted")
	}

	// Deleting a missing key is not an error
	if err := c.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("delete of missing key returned error: %v", err)
	}
}

func TestCache_Clear(t *testing.T) {
	c := newCache(t, 1024*1024)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, key, key, time.Minute); err != nil {
			t.Fatalf("failed to set %s: %v", key, err)
		}
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, len = %d", c.Len())
	}
	if c.Size() != 0 {
		t.Errorf("expected zero size, got %d", c.Size())
	}
}

func TestCache_Metrics(t *testing.T) {
	c := newCache(t, 1024*1024)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", "value1", time.Minute); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	c.Get(ctx, "key1")
	c.Get(ctx, "key1")
	c.Get(ctx, "missing")

	m := c.Metrics()
	if m.Hits != 2 {
		t.Errorf("hits = %d, want 2", m.Hits)
	}
	if m.Misses != 1 {
		t.Errorf("misses = %d, want 1", m.Misses)
	}
	if m.KeysAdded != 1 {
		t.Errorf("keys added = %d, want 1", m.KeysAdded)
	}
	if got := m.HitRate(); got < 0.66 || got > 0.67 {
		t.Errorf("hit rate = %f, want ~0.667", got)
	}
}

func TestCache_MetricsDisabled(t *testing.T) {
	c, err := New(&Config{MaxSizeBytes: 1024, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	c.Get(context.Background(), "missing")

	m := c.Metrics()
	if m.Hits != 0 || m.Misses != 0 {
		t.Error("metrics should stay zero when disabled")
	}
}
