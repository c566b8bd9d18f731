package rates

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cloudbudget/internal/logging"
)

// Source supplies the raw rate-table document, typically the store.
type Source interface {
	RawRates(ctx context.Context) (map[string]any, error)
}

// Cache keeps a parsed rate table in memory so the hot cost path does not
// hit the store on every report. Refresh is driven by a scheduler; a cache
// miss falls back to loading on demand.
type Cache struct {
	source Source

	mu     sync.RWMutex
	table  Table
	loaded bool
}

// NewCache builds an empty cache over source.
func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Table returns the cached rate table, loading it on first use.
func (c *Cache) Table(ctx context.Context) (Table, error) {
	c.mu.RLock()
	if c.loaded {
		t := c.table
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table, nil
}

// Refresh reloads the table from the source, replacing the cached copy.
// Malformed entries are skipped and logged, matching the parse semantics
// of the read path.
func (c *Cache) Refresh(ctx context.Context) error {
	raw, err := c.source.RawRates(ctx)
	if err != nil {
		return err
	}

	table, skipped := ParseTable(raw)
	if len(skipped) > 0 {
		logging.Warn("rate table entries skipped",
			zap.Strings("resource_types", skipped))
	}

	c.mu.Lock()
	c.table = table
	c.loaded = true
	c.mu.Unlock()

	logging.Debug("rate table refreshed", zap.Int("entries", len(table)))
	return nil
}

// Invalidate drops the cached table so the next read reloads. Called after
// a rate-table write.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}
