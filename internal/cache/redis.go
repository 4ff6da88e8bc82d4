package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxJitterMinutes = 5

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, productID string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, cacheKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var product domain.Product
	if err2 := json.Unmarshal(data, &product); err2 != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err2)
	}

	return &product, nil
}

// Version returns the invalidation counter of a product, 0 if it was never invalidated.
func (r RedisCache) Version(ctx context.Context, productID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r RedisCache) Set(ctx context.Context, product *domain.Product, version int64) error {
	productID := product.ID.Hex()
	jsonProduct, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	// jitter spreads expiry of products cached together
	jitter := time.Duration(rand.Intn(maxJitterMinutes)) * time.Minute
	ttl := r.baseTTL + jitter

	verKey := versionKey(productID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, errVer := tx.Get(ctx, verKey).Int64()
		if errVer != nil && !errors.Is(errVer, redis.Nil) {
			return errVer
		}
		if current != version {
			return ErrStaleWrite
		}
		_, errExec := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, cacheKey(productID), jsonProduct, ttl)
			return nil
		})
		return errExec
	}, verKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleWrite), errors.Is(err, redis.TxFailedErr):
		return ErrStaleWrite
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete drops the cached product and bumps its version. The version key
// outlives any value a fill could still write.
func (r RedisCache) Delete(ctx context.Context, productID string) error {
	verKey := versionKey(productID)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, verKey)
		p.Expire(ctx, verKey, r.baseTTL+maxJitterMinutes*time.Minute)
		p.Del(ctx, cacheKey(productID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

func versionKey(productID string) string {
	return fmt.Sprintf("product:%s:version", productID)
}
