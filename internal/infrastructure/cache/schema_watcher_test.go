package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mizutani/meibo/pkg/cache/memorycache"
)

func newTestCache(t *testing.T) *memorycache.Cache {
	t.Helper()
	c, err := memorycache.New(&memorycache.Config{
		MaxSizeBytes: 1024 * 1024,
		DefaultTTL:   time.Minute,
	})
	if err != nil {
		t.Fatalf("memorycache.New() error = %v", err)
	}
	return c
}

func TestSchemaWatcher_Invalidate(t *testing.T) {
	c := newTestCache(t)
	watcher := NewSchemaWatcher(c, "", zap.NewNop())
	ctx := context.Background()

	if err := c.Set(ctx, "schema:tenant1", "parsed-1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "schema:tenant2", "parsed-2", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	watcher.invalidate("tenant1")

	if _, found := c.Get(ctx, "schema:tenant1"); found {
		t.Error("schema:tenant1 should be invalidated")
	}
	if _, found := c.Get(ctx, "schema:tenant2"); !found {
		t.Error("schema:tenant2 should survive")
	}
}

func TestSchemaWatcher_InvalidateAll(t *testing.T) {
	c := newTestCache(t)
	watcher := NewSchemaWatcher(c, "", zap.NewNop())
	ctx := context.Background()

	if err := c.Set(ctx, "schema:tenant1", "parsed-1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Empty payload clears everything
	watcher.invalidate("")

	if _, found := c.Get(ctx, "schema:tenant1"); found {
		t.Error("empty payload should clear the whole cache")
	}
}

func TestSchemaWatcher_StopTwice(t *testing.T) {
	watcher := NewSchemaWatcher(newTestCache(t), "", zap.NewNop())

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
