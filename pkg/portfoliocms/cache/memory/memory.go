package memory

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// Cache is an in-process portfoliocms.Cache. Values are stored msgpack
// encoded so readers never share memory with writers.
type Cache struct {
	c *cache.Cache
}

// New creates a cache whose entries default to ttl and are swept every cleanup.
func New(ttl, cleanup time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, cleanup)}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := c.c.Get(key)
	if !ok {
		return false, nil
	}
	b, ok := raw.([]byte)
	if !ok {
		c.c.Delete(key)
		return false, nil
	}
	if err := msgpack.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	c.c.Set(key, b, ttl)
	return nil
}

func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	for key := range c.c.Items() {
		if strings.HasPrefix(key, prefix) {
			c.c.Delete(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

var _ portfoliocms.Cache = (*Cache)(nil)
