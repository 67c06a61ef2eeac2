// Package cache is a read-through response cache for the API's GET
// endpoints, keyed by request signature (path + query string). Entries
// expire on a TTL; the underlying data is read-only once loaded, so no
// invalidation hook is needed.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds staleness after a reload of the boundary catalog.
const DefaultTTL = 5 * time.Minute

// Entry is one cached response body with its content type.
type Entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache stores rendered response bodies in redis. A nil client
// disables the cache entirely (Get always misses, Set is a no-op), so the
// service runs unchanged without redis.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// NewFromEnv opens redis from REDIS_HOST / REDIS_PORT / REDIS_PASS and
// reads CACHE_TTL_SECONDS. An unset REDIS_HOST yields a disabled cache.
func NewFromEnv() *ResponseCache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return New(nil, 0)
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	ttl := DefaultTTL
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASS"),
	})
	return New(client, ttl)
}

func (c *ResponseCache) Enabled() bool { return c.client != nil }

func (c *ResponseCache) Get(ctx context.Context, key string) (*Entry, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, "resp:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get key=%q err=%v", key, err)
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	return &e, true
}

func (c *ResponseCache) Set(ctx context.Context, key string, e Entry) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	// Cache failures are logged and swallowed; the origin response
	// already went to the client.
	if err := c.client.Set(ctx, "resp:"+key, raw, c.ttl).Err(); err != nil {
		log.Printf("[cache] set key=%q err=%v", key, err)
	}
}
