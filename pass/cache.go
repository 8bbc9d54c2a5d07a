package pass

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// CachingFinder keeps the results of successful lookups of a
// RecordFinder in an LRU cache. Failed lookups are never cached.
type CachingFinder struct {
	finder RecordFinder
	cache  *lru.Cache
}

// NewCachingFinder wraps finder with a cache holding up to size results
func NewCachingFinder(finder RecordFinder, size int) (*CachingFinder, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("pass: failed to create lookup cache: %w", err)
	}
	return &CachingFinder{finder: finder, cache: cache}, nil
}

func cacheKey(kind, table, field string, value interface{}) string {
	return kind + "\x00" + table + "\x00" + field + "\x00" + stringify(value)
}

// FindByField returns a cached record or looks it up
func (c *CachingFinder) FindByField(ctx context.Context, table, field string, value interface{}) (Record, error) {
	key := cacheKey("one", table, field, value)
	if v, ok := c.cache.Get(key); ok {
		return v.(Record), nil
	}
	rec, err := c.finder.FindByField(ctx, table, field, value)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, rec)
	return rec, nil
}

// FindAllByField returns cached records or looks them up
func (c *CachingFinder) FindAllByField(ctx context.Context, table, field string, value interface{}) ([]Record, error) {
	key := cacheKey("all", table, field, value)
	if v, ok := c.cache.Get(key); ok {
		return v.([]Record), nil
	}
	recs, err := c.finder.FindAllByField(ctx, table, field, value)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, recs)
	return recs, nil
}
