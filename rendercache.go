package pubcorpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RenderCache stores rendered post bodies. Keys embed the entry checksum so
// an edited post never serves stale HTML.
type RenderCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, html []byte) error
}

// RenderKey returns the cache key for a post revision.
func RenderKey(slug, checksum string) string {
	return slug + ":" + checksum
}

const memoryRenderCacheSize = 1024

// MemoryRenderCache is an in-process RenderCache. It is emptied when it
// grows past its size limit.
type MemoryRenderCache struct {
	mu    sync.RWMutex
	items map[string][]byte
	max   int
}

// NewMemoryRenderCache returns an empty in-process cache.
func NewMemoryRenderCache() *MemoryRenderCache {
	return &MemoryRenderCache{items: make(map[string][]byte), max: memoryRenderCacheSize}
}

func (m *MemoryRenderCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	html, ok := m.items[key]
	m.mu.RUnlock()
	return html, ok, nil
}

func (m *MemoryRenderCache) Set(_ context.Context, key string, html []byte) error {
	m.mu.Lock()
	if len(m.items) >= m.max {
		m.items = make(map[string][]byte, m.max)
	}
	m.items[key] = html
	m.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryRenderCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// RedisRenderCache keeps rendered HTML in Redis with a TTL.
type RedisRenderCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisRenderCache wraps client. A zero ttl stores entries without expiry.
func NewRedisRenderCache(client *redis.Client, ttl time.Duration) *RedisRenderCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisRenderCache{redis: client, ttl: ttl, prefix: "pubcorpus:render:"}
}

// DialRedisRenderCache parses a redis:// URL and pings the server.
func DialRedisRenderCache(ctx context.Context, url string, ttl time.Duration) (*RedisRenderCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisRenderCache(client, ttl), nil
}

func (r *RedisRenderCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.redis.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisRenderCache) Set(ctx context.Context, key string, html []byte) error {
	return r.redis.Set(ctx, r.prefix+key, html, r.ttl).Err()
}

// Close closes the Redis client.
func (r *RedisRenderCache) Close() error {
	return r.redis.Close()
}
