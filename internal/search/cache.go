package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/model"
)

// CachedBackend memoizes successful backend responses for a TTL. Errors
// are not cached.
type CachedBackend struct {
	next  Backend
	cache *expirable.LRU[string, []model.URLCandidate]
}

// NewCachedBackend wraps next. A size of zero or less disables caching and
// returns next unchanged.
func NewCachedBackend(next Backend, size int, ttl time.Duration) Backend {
	if size <= 0 {
		return next
	}
	return &CachedBackend{
		next:  next,
		cache: expirable.NewLRU[string, []model.URLCandidate](size, nil, ttl),
	}
}

// Name implements Backend.
func (c *CachedBackend) Name() string { return c.next.Name() }

// Search implements Backend.
func (c *CachedBackend) Search(ctx context.Context, query string, num int) ([]model.URLCandidate, error) {
	key := fmt.Sprintf("%d|%s", num, query)
	if hit, ok := c.cache.Get(key); ok {
		zap.L().Debug("search: cache hit", zap.String("backend", c.next.Name()), zap.String("query", query))
		return hit, nil
	}
	res, err := c.next.Search(ctx, query, num)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, res)
	return res, nil
}
