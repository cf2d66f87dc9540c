package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "clerk:completion:"

// Cache stores completed model responses by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// RedisCache is a Cache backed by Redis with a fixed TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to the Redis instance at url and pings it.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CachingProvider serves repeated identical requests from a Cache. Cache
// failures are logged and fall through to the wrapped provider.
type CachingProvider struct {
	next   Provider
	cache  Cache
	logger *slog.Logger
}

func NewCachingProvider(next Provider, cache Cache, logger *slog.Logger) *CachingProvider {
	return &CachingProvider{next: next, cache: cache, logger: logger}
}

func (p *CachingProvider) Model() string {
	return p.next.Model()
}

func (p *CachingProvider) Complete(ctx context.Context, req Request) (string, error) {
	key, err := cacheKey(p.next.Model(), req)
	if err != nil {
		return p.next.Complete(ctx, req)
	}

	if v, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("completion cache read failed", "error", err)
	} else if ok {
		p.logger.Debug("completion cache hit", "model", p.next.Model())
		return v, nil
	}

	text, err := p.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := p.cache.Set(ctx, key, text); err != nil {
		p.logger.Warn("completion cache write failed", "error", err)
	}
	return text, nil
}

func cacheKey(model string, req Request) (string, error) {
	payload, err := json.Marshal(struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		MaxTokens   int       `json:"max_tokens"`
		SchemaName  string    `json:"schema_name"`
	}{model, req.Messages, req.Temperature, req.MaxTokens, req.SchemaName})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
