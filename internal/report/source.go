package report

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/vaxtrack/internal/owid"
)

// CachedSource keeps the last loaded table in memory for ttl
type CachedSource struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	table    *owid.Table
	loadedAt time.Time
}

// NewCachedSource wraps source
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, ttl: ttl, now: time.Now}
}

// Load returns the cached table unless it expired or refresh is set
func (c *CachedSource) Load(ctx context.Context, refresh bool) (*owid.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !refresh && c.table != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.table, nil
	}

	table, err := c.source.Load(ctx, refresh)
	if err != nil {
		return nil, err
	}
	c.table = table
	c.loadedAt = c.now()
	return table, nil
}

// Invalidate drops the cached table
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = nil
}
