package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache guards a ProductCache with a circuit breaker. While the
// breaker is open every call fails fast with gobreaker.ErrOpenState and the
// caller falls back to the store.
type BreakerCache struct {
	next ProductCache
	cb   *gobreaker.CircuitBreaker[*domain.Product]
}

func NewBreakerCache(next ProductCache, failureThreshold uint32, openTimeout time.Duration) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        "product-cache",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		// a miss or a skipped stale write is a healthy answer from redis
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrStaleWrite)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*domain.Product](settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return b.cb.Execute(func() (*domain.Product, error) {
		return b.next.Get(ctx, productID)
	})
}

func (b *BreakerCache) Version(ctx context.Context, productID string) (int64, error) {
	var version int64
	_, err := b.cb.Execute(func() (*domain.Product, error) {
		v, err := b.next.Version(ctx, productID)
		version = v
		return nil, err
	})
	return version, err
}

func (b *BreakerCache) Set(ctx context.Context, product *domain.Product, version int64) error {
	_, err := b.cb.Execute(func() (*domain.Product, error) {
		return nil, b.next.Set(ctx, product, version)
	})
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, productID string) error {
	_, err := b.cb.Execute(func() (*domain.Product, error) {
		return nil, b.next.Delete(ctx, productID)
	})
	return err
}

// State exposes the breaker state for health reporting and tests.
func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}
