package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type LocalEntry struct {
	Expires time.Time
	Data    []byte
}

// Cache is a two level cache, an in-process layer in front of an optional
// redis instance. Values are stored as JSON in both layers.
type Cache struct {
	client   *redis.Client
	mu       sync.Mutex
	memCache map[string]LocalEntry
	LocalTTL time.Duration
	now      func() time.Time
}

// NewCache connects to redis when addr is set, otherwise only the local layer
// is used.
func NewCache(addr, password string, db int) *Cache {
	c := &Cache{
		memCache: make(map[string]LocalEntry),
		LocalTTL: time.Minute,
		now:      time.Now,
	}
	if addr != "" {
		c.client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
	}
	return c
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local, found := c.memCache[key]
	if !found {
		return nil, false
	}
	if !local.Expires.After(c.now()) {
		delete(c.memCache, key)
		return nil, false
	}
	return local.Data, true
}

func (c *Cache) setLocal(key string, data []byte, expiration time.Duration) {
	ttl := c.LocalTTL
	if expiration > 0 && expiration < ttl {
		ttl = expiration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memCache[key] = LocalEntry{Expires: c.now().Add(ttl), Data: data}
}

// Get decodes the cached value into out, ErrCacheMiss is returned when
// neither layer has the key.
func (c *Cache) Get(ctx context.Context, key string, out any) error {
	if data, ok := c.getLocal(key); ok {
		return jsoncompat.Unmarshal(data, out)
	}
	if c.client == nil {
		return ErrCacheMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err = jsoncompat.Unmarshal(data, out); err != nil {
		return err
	}
	c.setLocal(key, data, c.LocalTTL)
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := jsoncompat.Marshal(value)
	if err != nil {
		return err
	}
	c.setLocal(key, data, expiration)
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Prune drops expired local entries.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, entry := range c.memCache {
		if !entry.Expires.After(now) {
			delete(c.memCache, key)
			n++
		}
	}
	return n
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
