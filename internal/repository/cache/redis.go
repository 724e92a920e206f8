package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/storefront/internal/domain"
)

// listTrackingKey is the SET holding every cached catalog page key
const listTrackingKey = "products:list_keys"

// ProductPage is a cached page of the catalog together with its total
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
}

// RedisCache implements read-through caching for the product catalog
type RedisCache struct {
	client         *redis.Client
	productTTL     time.Duration
	productListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productTTL, productListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		productTTL:     productTTL,
		productListTTL: productListTTL,
	}
}

func (c *RedisCache) productKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s", productID.String())
}

func (c *RedisCache) productListKey(limit, offset int) string {
	return fmt.Sprintf("products:limit:%d:offset:%d", limit, offset)
}

// GetProduct retrieves a cached product, domain.ErrNotFound on a miss
func (c *RedisCache) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	val, err := c.client.Get(ctx, c.productKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal(val, &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// SetProduct stores a product in cache
func (c *RedisCache) SetProduct(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.productKey(product.ID), data, c.productTTL).Err()
}

// GetProductList retrieves a cached catalog page, domain.ErrNotFound on a miss
func (c *RedisCache) GetProductList(ctx context.Context, limit, offset int) (*ProductPage, error) {
	val, err := c.client.Get(ctx, c.productListKey(limit, offset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var page ProductPage
	if err := json.Unmarshal(val, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// SetProductList stores a catalog page and tracks its key in a SET
func (c *RedisCache) SetProductList(ctx context.Context, limit, offset int, page *ProductPage) error {
	key := c.productListKey(limit, offset)

	data, err := json.Marshal(page)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.productListTTL)
	pipe.SAdd(ctx, listTrackingKey, key)
	pipe.Expire(ctx, listTrackingKey, c.productListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProduct removes a cached product
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	return c.client.Del(ctx, c.productKey(productID)).Err()
}

// InvalidateProductLists removes every cached catalog page using SET-based tracking
func (c *RedisCache) InvalidateProductLists(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, listTrackingKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, listTrackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}

// InvalidateAllProductCache invalidates every cache entry that can show a product's stock
func (c *RedisCache) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	if err := c.InvalidateProduct(ctx, productID); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if err := c.InvalidateProductLists(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	return nil
}
