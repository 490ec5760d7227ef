package server

import (
	"context"
	"errors"
	"log"
	"time"
)

type CacheHelper[T any] struct {
	Cache *Cache
}

func NewCacheHelper[T any](cache *Cache) *CacheHelper[T] {
	return &CacheHelper[T]{Cache: cache}
}

// Handle returns the cached value for key or computes it. The computed value
// is only stored when fn reports it as complete. Cache failures are logged
// and never fail the call.
func (c *CacheHelper[T]) Handle(ctx context.Context, key string, fn func() (T, bool), expiration time.Duration) (T, bool) {
	if c.Cache == nil {
		ret, _ := fn()
		return ret, false
	}
	var out T
	err := c.Cache.Get(ctx, key, &out)
	if err == nil {
		return out, true
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("cache get %s failed: %v", key, err)
	}
	out, complete := fn()
	if complete {
		if err = c.Cache.Set(ctx, key, out, expiration); err != nil {
			log.Printf("cache set %s failed: %v", key, err)
		}
	}
	return out, false
}
