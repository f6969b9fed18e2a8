package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// ProductCache implements domain.ProductCache as one hash per network:
//
//	{ns}:products:{network} - field symbol, value product id
//
// The hash expires ttl after the last write so listings the venue retires
// eventually drop out.
type ProductCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewProductCache creates a cache for the given Nado network.
func NewProductCache(c *Client, network string, ttl time.Duration) *ProductCache {
	return &ProductCache{rdb: c.rdb, key: c.key("products", network), ttl: ttl}
}

// SetProductID records symbol -> productID and refreshes the TTL.
func (pc *ProductCache) SetProductID(ctx context.Context, symbol string, productID int64) error {
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, pc.key, symbol, productID)
	if pc.ttl > 0 {
		pipe.Expire(ctx, pc.key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set product %s: %w", symbol, err)
	}
	return nil
}

// GetProductID returns domain.ErrNotFound when symbol is not cached.
func (pc *ProductCache) GetProductID(ctx context.Context, symbol string) (int64, error) {
	id, err := pc.rdb.HGet(ctx, pc.key, symbol).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get product %s: %w", symbol, err)
	}
	return id, nil
}

var _ domain.ProductCache = (*ProductCache)(nil)
