package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

const cacheOpTimeout = time.Second

type ProductService struct {
	repo         repository.ProductRepository
	cache        cache.ProductCache
	sfg          singleflight.Group // Prevents cache stampede
	fetchTimeout time.Duration
}

// NewProductService bounds each shared product fetch by fetchTimeout.
func NewProductService(repo repository.ProductRepository, cache cache.ProductCache, fetchTimeout time.Duration) *ProductService {
	return &ProductService{
		repo:         repo,
		cache:        cache,
		fetchTimeout: fetchTimeout,
	}
}

func (s *ProductService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// GetProduct reads through the cache. Cache failures are logged and the
// product is served from the store. Concurrent callers share one fetch that
// does not depend on any single caller staying connected.
func (s *ProductService) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	ch := s.sfg.DoChan(id.Hex(), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchProduct(fetchCtx, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// callers of one flight must not share a mutable product
		product := *res.Val.(*domain.Product)
		return &product, nil
	}
}

func (s *ProductService) fetchProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	key := id.Hex()
	product, err := s.cache.Get(ctx, key)
	if err == nil {
		return product, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.WarnContext(ctx, "cache get error", "product_id", key, "error", err)
	}

	// read before the store so an invalidation in between voids the fill
	version, errVersion := s.cache.Version(ctx, key)
	if errVersion != nil {
		slog.WarnContext(ctx, "cache version error", "product_id", key, "error", errVersion)
	}

	product, errGet := s.repo.GetProduct(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	if errVersion == nil {
		go func(p domain.Product) {
			setCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer cancel()
			errSet := s.cache.Set(setCtx, &p, version)
			if errSet != nil && !errors.Is(errSet, cache.ErrStaleWrite) {
				slog.Warn("cache set error", "product_id", key, "error", errSet)
			}
		}(*product)
	}

	return product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.repo.CreateProduct(ctx, product)
}

func (s *ProductService) ReplaceProduct(ctx context.Context, id primitive.ObjectID, product *domain.Product) error {
	if err := s.repo.ReplaceProduct(ctx, id, product); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id primitive.ObjectID) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(delCtx, id.Hex()); err != nil {
		slog.WarnContext(ctx, "cache invalidate error", "product_id", id.Hex(), "error", err)
	}
}
