package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mizutani/meibo/pkg/cache"
)

// schemaChannel is the NOTIFY channel fired by the schemas table trigger.
// The payload is the tenant ID whose schema changed.
const schemaChannel = "meibo_schema_changed"

// SchemaWatcher invalidates cached parsed schemas across distributed
// instances. It uses PostgreSQL LISTEN/NOTIFY for instant invalidation when a
// tenant writes or deletes a schema; the cache TTL is the fallback for missed
// notifications.
type SchemaWatcher struct {
	mu       sync.Mutex
	cache    cache.Cache
	logger   *zap.Logger
	listener *pq.Listener
	connStr  string
	stopCh   chan struct{}
	stopped  bool
}

// NewSchemaWatcher creates a new SchemaWatcher.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewSchemaWatcher(c cache.Cache, connStr string, logger *zap.Logger) *SchemaWatcher {
	return &SchemaWatcher{
		cache:   c,
		logger:  logger,
		connStr: connStr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins listening for schema change notifications
func (w *SchemaWatcher) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// TTL fallback covers missed notifications while reconnecting
			w.logger.Warn("schema watcher listener error", zap.Error(err))
		}
	}

	w.listener = pq.NewListener(w.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := w.listener.Listen(schemaChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", schemaChannel, err)
	}

	go w.handleNotifications()

	return nil
}

// Stop stops the watcher and cleans up resources
func (w *SchemaWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	if w.listener != nil {
		return w.listener.Close()
	}
	return nil
}

// handleNotifications processes incoming NOTIFY events
func (w *SchemaWatcher) handleNotifications() {
	for {
		select {
		case <-w.stopCh:
			return
		case notification := <-w.listener.Notify:
			if notification == nil {
				// Connection lost, listener will reconnect automatically
				continue
			}
			w.invalidate(notification.Extra)
		case <-time.After(90 * time.Second):
			// Periodic ping to keep connection alive
			go func() {
				if err := w.listener.Ping(); err != nil {
					w.logger.Warn("schema watcher ping error", zap.Error(err))
				}
			}()
		}
	}
}

// invalidate drops the cached schema for a tenant. An empty payload clears
// the whole cache.
func (w *SchemaWatcher) invalidate(tenantID string) {
	ctx := context.Background()

	if tenantID == "" {
		if err := w.cache.Clear(ctx); err != nil {
			w.logger.Warn("failed to clear schema cache", zap.Error(err))
		}
		return
	}

	if err := w.cache.Delete(ctx, "schema:"+tenantID); err != nil {
		w.logger.Warn("failed to invalidate cached schema",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return
	}

	w.logger.Debug("invalidated cached schema", zap.String("tenant_id", tenantID))
}
