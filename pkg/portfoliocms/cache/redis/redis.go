package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

const scanBatch = 500

// Cache is a portfoliocms.Cache shared between processes through Redis.
// Every key is namespaced under prefix.
type Cache struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client. An empty namespace defaults to "portfoliocms".
func New(client redis.UniversalClient, namespace string) *Cache {
	if namespace == "" {
		namespace = "portfoliocms"
	}
	return &Cache{client: client, prefix: namespace + ":"}
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url, namespace string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, namespace), nil
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	resp, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := msgpack.Unmarshal(resp, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix walks matching keys with SCAN so large keyspaces never block the server.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.key(prefix)+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del %s: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ portfoliocms.Cache = (*Cache)(nil)
