package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores finished translations keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CacheKey identifies a translation of text into target.
func CacheKey(target, text string) string {
	sum := sha256.Sum256([]byte(text))
	return target + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is a bounded in-process Cache. When full, an arbitrary entry
// is evicted to make room.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]string
	maxEntries int
}

// NewMemoryCache creates a cache holding at most maxEntries translations.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryCache{entries: make(map[string]string), maxEntries: maxEntries}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = value
	return nil
}

// size returns the number of cached translations.
func (c *MemoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares translations between processes through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects lazily to the Redis server at addr.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
	return &RedisCache{client: client, ttl: ttl, prefix: "sitetranslate:tr:"}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache: %w", err)
	}
	return v, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedBackend consults a Cache before calling the wrapped Backend.
// Cache errors are logged and treated as misses.
type CachedBackend struct {
	backend Backend
	cache   Cache
	logger  *slog.Logger
}

// NewCachedBackend wraps backend with cache.
func NewCachedBackend(backend Backend, cache Cache, logger *slog.Logger) *CachedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBackend{backend: backend, cache: cache, logger: logger}
}

// Name implements Backend.
func (b *CachedBackend) Name() string { return b.backend.Name() }

// Translate implements Backend.
func (b *CachedBackend) Translate(ctx context.Context, text, target string) (string, error) {
	key := CacheKey(target, text)

	cached, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		b.logger.Warn("translation cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	translated, err := b.backend.Translate(ctx, text, target)
	if err != nil {
		return "", err
	}
	if err := b.cache.Set(ctx, key, translated); err != nil {
		b.logger.Warn("translation cache write failed", "error", err)
	}
	return translated, nil
}
