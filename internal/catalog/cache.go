package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	ProductsKey   = "pos:catalog:products"
	CategoriesKey = "pos:catalog:categories"
)

var ErrProductNotFound = errors.New("product not found")

// Source is the remote catalog the cache reads through to.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// KV is the subset of *redis.Client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache is a read-through Redis cache in front of Source. Redis failures are
// logged and fall back to the source.
type Cache struct {
	src    Source
	kv     KV
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewCache(src Source, kv KV, ttl time.Duration, logger logrus.FieldLogger) *Cache {
	return &Cache{src: src, kv: kv, ttl: ttl, logger: logger}
}

func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.readThrough(ctx, ProductsKey, &out, func(ctx context.Context) (any, error) {
		products, err := c.src.ListProducts(ctx)
		out = products
		return products, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out, nil
}

func (c *Cache) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.readThrough(ctx, CategoriesKey, &out, func(ctx context.Context) (any, error) {
		categories, err := c.src.ListCategories(ctx)
		out = categories
		return categories, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return out, nil
}

// Product looks a single product up in the cached list.
func (c *Cache) Product(ctx context.Context, id int64) (Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	p, ok := FindProduct(products, id)
	if !ok {
		return Product{}, errors.Wrapf(ErrProductNotFound, "product %d", id)
	}
	return p, nil
}

// Invalidate drops every cached catalog key.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.kv.Del(ctx, ProductsKey, CategoriesKey).Err(); err != nil {
		return errors.Wrap(err, "invalidate catalog cache")
	}
	return nil
}

func (c *Cache) readThrough(ctx context.Context, key string, dst any, load func(context.Context) (any, error)) error {
	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jerr := json.Unmarshal(raw, dst); jerr == nil {
			return nil
		}
		c.logger.WithField("key", key).Warn("discarding undecodable catalog cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache read failed")
	}

	v, err := load(ctx)
	if err != nil {
		return err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode catalog cache entry")
	}
	if err := c.kv.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
	return nil
}
