package switchtab

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of tables kept by NewCache when size <= 0.
const DefaultCacheSize = 1024

type cacheKey struct {
	base, table uint32
}

// Cache memoizes another Reader by (base, table). Decoding is
// deterministic, so a hit is always equal to a fresh read. Errors are not
// cached. Cache is safe for concurrent use.
type Cache struct {
	next  Reader
	cache *lru.Cache
}

// NewCache wraps r with an LRU of the given size.
func NewCache(r Reader, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating switch table cache: %w", err)
	}
	return &Cache{next: r, cache: c}, nil
}

// ReadSwitchTable implements Reader.
func (c *Cache) ReadSwitchTable(base, table uint32) (Table, error) {
	key := cacheKey{base: base, table: table}
	if v, ok := c.cache.Get(key); ok {
		return v.(Table), nil
	}
	t, err := c.next.ReadSwitchTable(base, table)
	if err != nil {
		return Table{}, err
	}
	c.cache.Add(key, t)
	return t, nil
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	return c.cache.Len()
}
