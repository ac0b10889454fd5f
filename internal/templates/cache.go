package templates

import (
	"context"
	"sort"
	"sync"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"golang.org/x/sync/singleflight"
)

// ResolveFunc loads a template directory. Resolve is the production one.
type ResolveFunc func(dir string) (*Template, error)

// Cache is a process-lifetime store of resolved templates keyed by
// normalised directory path. It is shared by reference between request
// handlers. Concurrent misses for the same key resolve once; failures are
// not cached so a template created after a failed request is picked up.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Template
	group   singleflight.Group
	resolve ResolveFunc
}

// NewCache creates an empty cache backed by Resolve.
func NewCache() *Cache {
	return NewCacheWithResolver(Resolve)
}

// NewCacheWithResolver creates an empty cache backed by resolve.
func NewCacheWithResolver(resolve ResolveFunc) *Cache {
	return &Cache{
		entries: make(map[string]*Template),
		resolve: resolve,
	}
}

// Get returns the template for dir, resolving it on a miss.
func (c *Cache) Get(ctx context.Context, dir string) (*Template, error) {
	key, err := NormalizePath(dir)
	if err != nil {
		return nil, terrors.NewTemplateNotFound(dir, err)
	}

	c.mu.RLock()
	tpl, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		tpl, err := c.resolve(key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = tpl
		c.mu.Unlock()

		return tpl, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Template), nil
	}
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Keys returns the cached template directories, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Strings(keys)

	return keys
}
