// Package graphcache is the supervisory cache from spec.md section 4.6:
// at most one (Graph, Options) pair, keyed by a content hash of the
// buffered grid stack plus the (allow_diagonal, minimize_cost) pair.
// It wraps a ristretto.Cache for O(1) get/set with bounded memory, even
// though this cache only ever holds one live entry; see DESIGN.md.
package graphcache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"egress/internal/graph"
	"egress/internal/model"
)

// Entry is one cached graph build.
type Entry struct {
	Graph   *graph.Graph
	Options graph.Options
}

// Cache holds at most one live Entry, keyed by content hash.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu         sync.Mutex
	currentKey string
	hits       int64
	misses     int64
}

// New builds a cache sized for holding one graph build at a time;
// maxCost bounds the ristretto store (bytes, approximate).
func New(maxCost int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("graphcache: creating ristretto cache: %w", err)
	}
	return &Cache{cache: c, ttl: ttl}, nil
}

// Key hashes the buffered grid stack's contents plus the graph build
// options into the cache key spec.md section 4.6 describes.
func Key(stack *model.GridStack, opts graph.Options) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v|%v|%v|%v|", stack.CellSize, stack.UnitSize, opts.AllowDiagonal, opts.MinimizeCost)
	for _, f := range stack.Floors {
		fmt.Fprintf(h, "%v,%v|", f.Elevation, f.Height)
	}
	for _, g := range stack.Grids {
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				h.Write([]byte{byte(g.At(r, c))})
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// Get returns the cached entry for key, if present.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, found := c.cache.Get(key)
	if !found {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	return v.(Entry), true
}

// Set stores the entry for key as the sole live cache entry, evicting
// whatever key was previously cached (spec.md's "at most one" pair).
func (c *Cache) Set(key string, entry Entry, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentKey != "" && c.currentKey != key {
		c.cache.Del(c.currentKey)
	}
	c.cache.SetWithTTL(key, entry, cost, c.ttl)
	c.cache.Wait()
	c.currentKey = key
}

// Clear invalidates the cache; spec.md section 4.6 calls for this when a
// new building is loaded.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
	c.currentKey = ""
}

// Metrics reports cache hit/miss counters.
type Metrics struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{Hits: c.hits, Misses: c.misses}
}
