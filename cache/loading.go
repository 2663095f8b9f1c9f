//Package cache provides the bounded loading caches shared by the compute functions.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

//DefaultSize default number of entries of a LoadingCache
const DefaultSize = 1000

//Loader fetches the value of a key missing from the cache
type Loader[K comparable, V any] func(key K) (V, error)

//LoadingCache is a bounded LRU cache populated on demand by a Loader.
//Concurrent misses on the same key share a single load. Failed loads are not cached.
type LoadingCache[K comparable, V any] struct {
	name    string
	entries *lru.Cache[K, V]
	loader  Loader[K, V]
	group   singleflight.Group

	mu sync.Mutex
	//loads holds the keys being loaded, an invalidation bumps the generation of the ongoing load
	loads map[K]*load
}

type load struct {
	generation uint64
	callers    int
}

//New creates a LoadingCache holding at most size entries
func New[K comparable, V any](name string, size int, loader Loader[K, V]) (*LoadingCache[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[K, V](size)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating cache %s", name)
	}
	return &LoadingCache[K, V]{
		name:        name,
		entries:     entries,
		loader:      loader,
		loads:       map[K]*load{},
	}, nil
}

//Name of the cache
func (c *LoadingCache[K, V]) Name() string {
	return c.name
}

func (c *LoadingCache[K, V]) begin(key K) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.loads[key]
	if !ok {
		l = &load{}
		c.loads[key] = l
	}
	l.callers++
	return l.generation
}

func (c *LoadingCache[K, V]) end(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.loads[key]
	l.callers--
	if l.callers == 0 {
		delete(c.loads, key)
	}
}

//invalidate must be called with mu held
func (c *LoadingCache[K, V]) invalidate(key K) {
	if l, ok := c.loads[key]; ok {
		l.generation++
	}
	c.entries.Remove(key)
}

//Get returns the cached value of key, loading it if absent
func (c *LoadingCache[K, V]) Get(key K) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	gen := c.begin(key)
	defer c.end(key)
	res, err, _ := c.group.Do(fmt.Sprintf("%#v#%d", key, gen), func() (interface{}, error) {
		v, err := c.loader(key)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		//an invalidation happened while loading: hand the value to the callers but do not publish it
		if l, ok := c.loads[key]; ok && l.generation == gen {
			c.entries.Add(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, errors.Wrapf(err, "error loading %v in cache %s", key, c.name)
	}
	return res.(V), nil
}

//GetIfPresent returns the cached value of key without loading it
func (c *LoadingCache[K, V]) GetIfPresent(key K) (V, bool) {
	return c.entries.Get(key)
}

//Put stores a value
func (c *LoadingCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, value)
}

//Invalidate removes key, the next Get reloads it
func (c *LoadingCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate(key)
}

//InvalidateIf removes all the entries matching pred and returns how many were removed
func (c *LoadingCache[K, V]) InvalidateIf(pred func(key K, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.entries.Keys() {
		v, ok := c.entries.Peek(k)
		if ok && pred(k, v) {
			c.invalidate(k)
			n++
		}
	}
	return n
}

//InvalidateAll empties the cache
func (c *LoadingCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.loads {
		l.generation++
	}
	c.entries.Purge()
}

//Len number of cached entries
func (c *LoadingCache[K, V]) Len() int {
	return c.entries.Len()
}
