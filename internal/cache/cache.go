package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/shop-api/internal/domain"
)

// ProductCache caches products by hex id. Every Delete bumps the product's
// version; Set only writes when the version still equals the one read with
// Version before the store was queried, so a slow fill cannot resurrect a
// replaced or deleted product.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Version(ctx context.Context, productID string) (int64, error)
	Set(ctx context.Context, product *domain.Product, version int64) error
	Delete(ctx context.Context, productID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleWrite reports a Set skipped because the product was invalidated meanwhile.
	ErrStaleWrite = errors.New("cache write skipped: product changed")
)
