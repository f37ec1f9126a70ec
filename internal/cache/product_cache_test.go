package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

type stubProducts struct {
	repository.ProductRepository
	products    map[int64]models.Product
	getCalls    int
	listCalls   int
	updateCalls int
}

func (s *stubProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	s.getCalls++
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *stubProducts) List(_ context.Context, _ models.ProductFilter) ([]models.Product, error) {
	s.listCalls++
	out := []models.Product{}
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProducts) Update(_ context.Context, p *models.Product) error {
	s.updateCalls++
	s.products[p.ProductID] = *p
	return nil
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

func newStub() *stubProducts {
	return &stubProducts{products: map[int64]models.Product{
		1: {ProductID: 1, Name: "Rose", Price: decimal.RequireFromString("10.00"), Stock: 5, Available: true},
	}}
}

func TestCachedProductRepository_GetByIDReadsThrough(t *testing.T) {
	_, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.getCalls)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
	assert.Equal(t, 5, second.Stock)
}

func TestCachedProductRepository_CachesMisses(t *testing.T) {
	mr, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, stub.getCalls)

	mr.FastForward(notFoundTTL + time.Second)
	_, err = repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, stub.getCalls)
}

func TestCachedProductRepository_InvalidatesOnWrite(t *testing.T) {
	_, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	_, err = repo.List(ctx, models.ProductFilter{})
	require.NoError(t, err)

	updated := stub.products[1]
	updated.Price = decimal.RequireFromString("12.50")
	require.NoError(t, repo.Update(ctx, &updated))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Price.String())
	assert.Equal(t, 2, stub.getCalls)

	_, err = repo.List(ctx, models.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.listCalls)
}

func TestCachedProductRepository_InvalidateProductsDropsCategoryLists(t *testing.T) {
	mr, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, mr.Set(categoryKey("parfums"), "[]"))
	require.NoError(t, mr.Set(productKey(1), "{}"))

	repo.InvalidateProducts(ctx, 1)

	assert.False(t, mr.Exists(categoryKey("parfums")))
	assert.False(t, mr.Exists(productKey(1)))
}

func TestCachedProductRepository_FilteredListBypassesCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	available := true
	for i := 0; i < 2; i++ {
		_, err := repo.List(ctx, models.ProductFilter{Available: &available})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, stub.listCalls)
	assert.False(t, mr.Exists(allProductsKey))
}

func TestCachedProductRepository_FallsBackWhenRedisIsDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	stub := newStub()
	repo := NewCachedProductRepository(stub, client, time.Minute, zap.NewNop())
	mr.Close()

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Rose", got.Name)
}
