package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
)

// Provider produces a fresh schema snapshot from the backing database.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Cache holds the current snapshot and swaps it atomically on refresh.
// Reads never block on a refresh in flight.
type Cache struct {
	provider Provider
	current  atomic.Pointer[Snapshot]
}

func NewCache(provider Provider) *Cache {
	cache := &Cache{provider: provider}
	empty := NewSnapshot(nil)
	cache.current.Store(&empty)
	return cache
}

func (c *Cache) Current() Snapshot {
	return *c.current.Load()
}

func (c *Cache) Refresh(ctx context.Context) error {
	snapshot, err := c.provider.Snapshot(ctx)
	observability.ObserveSchemaRefresh(err)
	if err != nil {
		return fmt.Errorf("refresh schema snapshot: %w", err)
	}
	c.current.Store(&snapshot)
	return nil
}

// Run refreshes the snapshot on the given period until ctx is canceled.
// Refresh failures are logged and the previous snapshot stays in place.
func (c *Cache) Run(ctx context.Context, period time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				logger.WarnContext(ctx, "schema refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
