package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// ResponseKey is the key pattern for cached responses, keyed by literal request URL.
const ResponseKey = "resp:%s" // resp:https://domain/path

// MaxBodySize caps the size of a response body that will be cached.
const MaxBodySize = 5 << 20

// Entry is a cached HTTP response.
type Entry struct {
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"body"`
}

// WriteTo replays the cached response onto w.
func (e *Entry) WriteTo(w http.ResponseWriter) {
	for k, v := range e.Headers {
		w.Header().Set(k, v)
	}
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}

// ResponseCache is an advisory read-through cache. Misses return (nil, nil);
// callers treat every error as a miss.
type ResponseCache interface {
	Get(ctx context.Context, url string) (*Entry, error)
	Put(ctx context.Context, url string, e *Entry, ttl time.Duration) error
	Delete(ctx context.Context, url string) error
}

// RedisCache stores responses in Redis.
type RedisCache struct {
	redis *redis.Client
}

// NewRedisCache creates a new response cache
func NewRedisCache(redisClient *redis.Client) *RedisCache {
	return &RedisCache{redis: redisClient}
}

func (c *RedisCache) Get(ctx context.Context, url string) (*Entry, error) {
	key := fmt.Sprintf(ResponseKey, url)

	cached, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal(cached, &e); err != nil {
		return nil, err
	}

	return &e, nil
}

func (c *RedisCache) Put(ctx context.Context, url string, e *Entry, ttl time.Duration) error {
	if len(e.Body) > MaxBodySize {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return c.redis.Set(ctx, fmt.Sprintf(ResponseKey, url), data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, url string) error {
	return c.redis.Del(ctx, fmt.Sprintf(ResponseKey, url)).Err()
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*Entry, error) { return nil, nil }
func (Nop) Put(context.Context, string, *Entry, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error { return nil }
