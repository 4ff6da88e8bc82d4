package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockProductRepository struct {
	m        sync.RWMutex
	products map[primitive.ObjectID]domain.Product
	err      error
	gets     atomic.Int32
	delay    time.Duration
}

func newMockProductRepository(products ...domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[primitive.ObjectID]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) ListProducts(context.Context, domain.ProductFilter) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepository) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.gets.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockProductRepository) CreateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = primitive.NewObjectID()
	m.products[p.ID] = *p
	return nil
}

func (m *mockProductRepository) ReplaceProduct(_ context.Context, id primitive.ObjectID, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	p.ID = id
	m.products[id] = *p
	return nil
}

func (m *mockProductRepository) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

type mockCache struct {
	m        sync.RWMutex
	products map[string]domain.Product
	versions map[string]int64
	err      error
	deletes  int
}

func newMockCache() *mockCache {
	return &mockCache{
		products: make(map[string]domain.Product),
		versions: make(map[string]int64),
	}
}

func (m *mockCache) Get(_ context.Context, id string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (m *mockCache) Version(_ context.Context, id string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.versions[id], nil
}

func (m *mockCache) Set(_ context.Context, p *domain.Product, version int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.versions[p.ID.Hex()] != version {
		return cache.ErrStaleWrite
	}
	m.products[p.ID.Hex()] = *p
	return nil
}

func (m *mockCache) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	if m.err != nil {
		return m.err
	}
	m.versions[id]++
	delete(m.products, id)
	return nil
}

func (m *mockCache) has(id string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.products[id]
	return ok
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}

const testFetchTimeout = 5 * time.Second

func sampleProduct() domain.Product {
	return domain.Product{ID: primitive.NewObjectID(), Name: "Kettle", Price: 39.5}
}

func TestGetProduct_CacheMissFillsCache(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	c := newMockCache()

	sut := NewProductService(repo, c, testFetchTimeout)
	got, err := sut.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	require.Eventually(t, func() bool {
		return c.has(p.ID.Hex())
	}, 100*time.Millisecond, 10*time.Millisecond, "product was not set in cache")
}

func TestGetProduct_CacheHitSkipsRepo(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository()
	c := newMockCache()
	c.products[p.ID.Hex()] = p

	sut := NewProductService(repo, c, testFetchTimeout)
	got, err := sut.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
	assert.Equal(t, int32(0), repo.gets.Load())
}

func TestGetProduct_CacheErrorFallsBackToRepo(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	c := newMockCache()
	c.err = fmt.Errorf("redis down")

	sut := NewProductService(repo, c, testFetchTimeout)
	got, err := sut.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	sut := NewProductService(newMockProductRepository(), newMockCache(), testFetchTimeout)
	got, err := sut.GetProduct(context.Background(), primitive.NewObjectID())
	require.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Nil(t, got)
}

func TestGetProduct_ConcurrentMissesCollapse(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	repo.delay = 100 * time.Millisecond
	sut := NewProductService(repo, newMockCache(), testFetchTimeout)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := sut.GetProduct(context.Background(), p.ID)
			assert.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
		}()
	}
	wg.Wait()

	assert.Less(t, repo.gets.Load(), int32(10))
}

func TestReplaceProduct_InvalidatesCache(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	c := newMockCache()
	c.products[p.ID.Hex()] = p

	sut := NewProductService(repo, c, testFetchTimeout)
	replacement := domain.Product{Name: "Kettle v2", Price: 45}
	require.NoError(t, sut.ReplaceProduct(context.Background(), p.ID, &replacement))

	assert.False(t, c.has(p.ID.Hex()))
	got, err := sut.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle v2", got.Name)
}

func TestReplaceProduct_NotFoundKeepsCache(t *testing.T) {
	c := newMockCache()
	sut := NewProductService(newMockProductRepository(), c, testFetchTimeout)

	err := sut.ReplaceProduct(context.Background(), primitive.NewObjectID(), &domain.Product{Name: "x"})
	require.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Equal(t, 0, c.deleteCount())
}

func TestDeleteProduct_InvalidatesCache(t *testing.T) {
	p := sampleProduct()
	c := newMockCache()
	c.products[p.ID.Hex()] = p

	sut := NewProductService(newMockProductRepository(p), c, testFetchTimeout)
	require.NoError(t, sut.DeleteProduct(context.Background(), p.ID))
	assert.False(t, c.has(p.ID.Hex()))

	err := sut.DeleteProduct(context.Background(), p.ID)
	require.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestDeleteProduct_CacheFailureIsNotFatal(t *testing.T) {
	p := sampleProduct()
	c := newMockCache()
	c.err = fmt.Errorf("redis down")

	sut := NewProductService(newMockProductRepository(p), c, testFetchTimeout)
	require.NoError(t, sut.DeleteProduct(context.Background(), p.ID))
}

func TestCreateAndListProducts(t *testing.T) {
	repo := newMockProductRepository()
	sut := NewProductService(repo, newMockCache(), testFetchTimeout)

	p := &domain.Product{Name: "Mug", Price: 9}
	require.NoError(t, sut.CreateProduct(context.Background(), p))
	assert.False(t, p.ID.IsZero())

	list, err := sut.ListProducts(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// slowSetCache holds back cache fills so a write can land before them.
type slowSetCache struct {
	cache.ProductCache
	delay time.Duration
}

func (c slowSetCache) Set(ctx context.Context, p *domain.Product, version int64) error {
	time.Sleep(c.delay)
	return c.ProductCache.Set(ctx, p, version)
}

func newSlowRedisCache(t *testing.T, delay time.Duration) cache.ProductCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return slowSetCache{ProductCache: cache.NewRedisCache(client, time.Minute), delay: delay}
}

func TestGetProduct_LateFillDoesNotOutliveReplace(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	sut := NewProductService(repo, newSlowRedisCache(t, 50*time.Millisecond), testFetchTimeout)
	ctx := context.Background()

	_, err := sut.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, sut.ReplaceProduct(ctx, p.ID, &domain.Product{Name: "Kettle v2", Price: 45}))
	time.Sleep(150 * time.Millisecond)

	got, err := sut.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle v2", got.Name)
}

func TestGetProduct_LateFillDoesNotOutliveDelete(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	sut := NewProductService(repo, newSlowRedisCache(t, 50*time.Millisecond), testFetchTimeout)
	ctx := context.Background()

	_, err := sut.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, sut.DeleteProduct(ctx, p.ID))
	time.Sleep(150 * time.Millisecond)

	got, err := sut.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Nil(t, got)
}

func TestGetProduct_FillAfterInvalidationStillCaches(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	c := newMockCache()
	sut := NewProductService(repo, c, testFetchTimeout)
	ctx := context.Background()

	require.NoError(t, sut.ReplaceProduct(ctx, p.ID, &domain.Product{Name: "Kettle v2", Price: 45}))
	_, err := sut.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.has(p.ID.Hex())
	}, 100*time.Millisecond, 10*time.Millisecond, "product was not set in cache")
}

func TestGetProduct_CanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	repo.delay = 100 * time.Millisecond
	sut := NewProductService(repo, newMockCache(), testFetchTimeout)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := sut.GetProduct(firstCtx, p.ID)
		firstErr <- err
	}()

	// let the first caller own the flight before the second joins
	require.Eventually(t, func() bool {
		return repo.gets.Load() == 1
	}, time.Second, 5*time.Millisecond)

	type result struct {
		p   *domain.Product
		err error
	}
	second := make(chan result, 1)
	go func() {
		got, err := sut.GetProduct(context.Background(), p.ID)
		second <- result{got, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, p.Name, res.p.Name)
	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestGetProduct_SharedFetchIsBounded(t *testing.T) {
	p := sampleProduct()
	repo := newMockProductRepository(p)
	repo.delay = time.Second
	sut := NewProductService(repo, newMockCache(), 50*time.Millisecond)

	start := time.Now()
	_, err := sut.GetProduct(context.Background(), p.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
