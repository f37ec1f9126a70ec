package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

const (
	allProductsKey = "products:all"
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func categoryKey(slug string) string {
	return fmt.Sprintf("products:category:%s", slug)
}

// CachedProductRepository is a read-through cache in front of a
// ProductRepository. Redis failures are logged and fall back to the store.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

var _ repository.ProductRepository = (*CachedProductRepository)(nil)

func NewCachedProductRepository(realRepo repository.ProductRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    rdb,
		ttl:      ttl,
		logger:   logger.Named("product_cache"),
	}
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}

		var product models.Product
		if err := json.Unmarshal(data, &product); err != nil {
			c.logger.Warn("failed to unmarshal cached product, continuing with DB", zap.String("key", key), zap.Error(err))
			break
		}
		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn("redis error, continuing with DB", zap.String("key", key), zap.Error(err))
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
				c.logger.Warn("failed to cache notfound", zap.String("key", key), zap.Error(setErr))
			}
		}
		return nil, err
	}

	c.store(ctx, key, product)
	return product, nil
}

func (c *CachedProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return c.realRepo.GetBySlug(ctx, slug)
}

func (c *CachedProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	if !filter.IsZero() {
		return c.realRepo.List(ctx, filter)
	}
	return c.cachedList(ctx, allProductsKey, func() ([]models.Product, error) {
		return c.realRepo.List(ctx, filter)
	})
}

func (c *CachedProductRepository) GetByCategory(ctx context.Context, categorySlug string) ([]models.Product, error) {
	return c.cachedList(ctx, categoryKey(categorySlug), func() ([]models.Product, error) {
		return c.realRepo.GetByCategory(ctx, categorySlug)
	})
}

func (c *CachedProductRepository) Latest(ctx context.Context, limit int) ([]models.Product, error) {
	return c.realRepo.Latest(ctx, limit)
}

func (c *CachedProductRepository) cachedList(ctx context.Context, key string, load func() ([]models.Product, error)) ([]models.Product, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		c.logger.Warn("failed to unmarshal cached products, continuing with DB", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis error, continuing with DB", zap.String("key", key), zap.Error(err))
	}

	products, err := load()
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, products)
	return products, nil
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal products", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache products", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateProducts drops the per-product entries and every list, since
// list entries embed stock and availability.
func (c *CachedProductRepository) InvalidateProducts(ctx context.Context, ids ...int64) {
	keys := []string{allProductsKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	categoryKeys, err := c.redis.Keys(ctx, categoryKey("*")).Result()
	if err != nil {
		c.logger.Warn("failed to list category caches", zap.Error(err))
	}
	keys = append(keys, categoryKeys...)

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("failed to delete product caches", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}
	c.InvalidateProducts(ctx, product.ProductID)
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	defer c.InvalidateProducts(ctx, product.ProductID)
	return c.realRepo.Update(ctx, product)
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	defer c.InvalidateProducts(ctx, id)
	return c.realRepo.Delete(ctx, id)
}

func (c *CachedProductRepository) AdjustStock(ctx context.Context, id int64, change int) error {
	defer c.InvalidateProducts(ctx, id)
	return c.realRepo.AdjustStock(ctx, id, change)
}
