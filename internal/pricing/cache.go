package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/cart"
)

type Cache interface {
	Get(ctx context.Context, name string) (cart.Product, bool, error)
	Set(ctx context.Context, name string, p cart.Product) error
}

// CachingFetcher serves prices from a Cache and falls back to the wrapped
// Fetcher on a miss. Cache failures are logged and never fail a lookup.
type CachingFetcher struct {
	next   Fetcher
	cache  Cache
	logger *zap.Logger
}

func NewCachingFetcher(next Fetcher, cache Cache, logger *zap.Logger) *CachingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingFetcher{next: next, cache: cache, logger: logger.Named("pricing.cache")}
}

func (f *CachingFetcher) Fetch(ctx context.Context, name string) (cart.Product, error) {
	p, ok, err := f.cache.Get(ctx, name)
	if err != nil {
		f.logger.Warn("price cache read failed", zap.String("product", name), zap.Error(err))
	} else if ok {
		return p, nil
	}

	p, err = f.next.Fetch(ctx, name)
	if err != nil {
		return cart.Product{}, err
	}

	if err := f.cache.Set(ctx, name, p); err != nil {
		f.logger.Warn("price cache write failed", zap.String("product", name), zap.Error(err))
	}
	return p, nil
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Key(name string) string {
	return "price:" + strings.ToLower(name)
}

func (c *RedisCache) Get(ctx context.Context, name string) (cart.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, c.Key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cart.Product{}, false, nil
		}
		return cart.Product{}, false, fmt.Errorf("redis get: %w", err)
	}

	var p cart.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return cart.Product{}, false, fmt.Errorf("decode cached product: %w", err)
	}
	return p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, name string, p cart.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(name), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
