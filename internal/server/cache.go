package server

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/seralab/contexture/internal/engine"
	"github.com/seralab/contexture/pkg/metrics"
)

// QueryCache memoizes search result pages in an in-process LRU. Every
// mutating command bumps the generation counter, which shifts all keys and
// so invalidates the whole cache at once. Concurrent identical queries are
// collapsed through singleflight.
type QueryCache struct {
	entries *lru.Cache[string, engine.ResultPage]
	group   singleflight.Group
	gen     atomic.Uint64
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQueryCache builds a cache holding up to size pages. metrics may be
// nil.
func NewQueryCache(size int, m *metrics.Metrics) (*QueryCache, error) {
	entries, err := lru.New[string, engine.ResultPage](size)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &QueryCache{
		entries: entries,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}, nil
}

// GetOrCompute returns the cached page for key, or runs compute once for
// all concurrent callers and caches its result. The second return value
// is true on a cache hit, and on a miss when the computation was shared
// with concurrent callers.
func (c *QueryCache) GetOrCompute(key string, compute func() (engine.ResultPage, error)) (engine.ResultPage, bool, error) {
	genKey := fmt.Sprintf("%d|%s", c.gen.Load(), key)

	if page, ok := c.entries.Get(genKey); ok {
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return page, true, nil
	}

	v, err, shared := c.group.Do(genKey, func() (any, error) {
		page, err := compute()
		if err != nil {
			return engine.ResultPage{}, err
		}
		c.entries.Add(genKey, page)
		return page, nil
	})
	if err != nil {
		return engine.ResultPage{}, false, err
	}
	if c.metrics != nil {
		if shared {
			c.metrics.CacheHitsTotal.Inc()
		} else {
			c.metrics.CacheMissesTotal.Inc()
		}
	}
	return v.(engine.ResultPage), shared, nil
}

// Invalidate drops every cached page by advancing the generation.
func (c *QueryCache) Invalidate() {
	c.gen.Add(1)
}
