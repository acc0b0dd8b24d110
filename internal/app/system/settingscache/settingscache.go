// Package settingscache keeps recently read page settings in memory for
// the public read API. Saves invalidate the page they touched.
package settingscache

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/patrickmn/go-cache"
)

// Loader reads one page's settings from the backing store.
type Loader interface {
	Get(ctx context.Context, page string) (*models.PageSettings, error)
}

// Cache wraps a Loader with a TTL cache keyed by page slug.
//
// A read that started before an Invalidate or Flush of its page does not
// store its result, so a slow read cannot put stale settings back.
type Cache struct {
	loader Loader
	c      *cache.Cache

	mu    sync.Mutex
	epoch uint64            // bumped by Flush
	gens  map[string]uint64 // bumped by Invalidate
}

// generation identifies the cache state a read started from.
type generation struct {
	epoch, page uint64
}

// New creates a Cache. A ttl of zero or less disables caching.
func New(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{loader: loader}
	}
	return &Cache{loader: loader, c: cache.New(ttl, 2*ttl), gens: map[string]uint64{}}
}

// Get returns the settings of page, reading through on a miss.
// Errors are not cached.
func (c *Cache) Get(ctx context.Context, page string) (*models.PageSettings, error) {
	if c.c == nil {
		return c.loader.Get(ctx, page)
	}
	if v, ok := c.c.Get(page); ok {
		return v.(*models.PageSettings), nil
	}

	start := c.generation(page)
	s, err := c.loader.Get(ctx, page)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generationLocked(page) == start {
		c.c.Set(page, s, cache.DefaultExpiration)
	}
	c.mu.Unlock()
	return s, nil
}

func (c *Cache) generation(page string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(page)
}

func (c *Cache) generationLocked(page string) generation {
	return generation{epoch: c.epoch, page: c.gens[page]}
}

// Invalidate drops the cached settings of page.
func (c *Cache) Invalidate(page string) {
	if c.c == nil {
		return
	}
	c.mu.Lock()
	c.gens[page]++
	c.c.Delete(page)
	c.mu.Unlock()
}

// Flush drops everything.
func (c *Cache) Flush() {
	if c.c == nil {
		return
	}
	c.mu.Lock()
	c.epoch++
	c.c.Flush()
	c.mu.Unlock()
}
