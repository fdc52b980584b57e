package storex

import (
	"context"

	"github.com/redis/go-redis/v9"

	"go.eggybyte.com/egg/core/errors"
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	Addr         string
	Password     string
	DB           int
	Instrumenter Instrumenter // Installs command tracing when set
}

// Cache is a Redis-backed Store.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis client. Connections are opened lazily.
func NewCache(opts CacheOptions) (*Cache, error) {
	if opts.Addr == "" {
		return nil, errors.New(errors.CodeInvalidArgument, "cache address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if opts.Instrumenter != nil {
		if err := opts.Instrumenter.InstrumentRedis(client); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(errors.CodeInternal, "storex.cache", err)
		}
	}
	return &Cache{client: client}, nil
}

// Client returns the Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Ping implements Store.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close implements Store.
func (c *Cache) Close() error {
	return c.client.Close()
}
