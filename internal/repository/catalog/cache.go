// Package catalog puts a bounded LRU cache in front of the medication catalog,
// which is read on every reminder sync for notification titles and bodies.
package catalog

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// errSourceRequired is returned when no backing catalog is provided.
var errSourceRequired = errors.New("catalog source must be provided")

// Cache is a read-through storage.MedicationCatalog.
type Cache struct {
	// source is the backing catalog.
	source storage.MedicationCatalog
	// cache holds recently used medications by id.
	cache *lru.Cache[string, storage.Medication]
}

// NewCache wraps source with an LRU cache of the given size.
func NewCache(source storage.MedicationCatalog, size int) (*Cache, error) {
	if source == nil {
		return nil, errSourceRequired
	}

	cache, err := lru.New[string, storage.Medication](size)
	if err != nil {
		return nil, fmt.Errorf("create catalog cache: %w", err)
	}

	return &Cache{
		source: source,
		cache:  cache,
	}, nil
}

// Get returns the medication from cache or the backing catalog.
// Misses, including ErrNotFound, are not cached.
func (c *Cache) Get(ctx context.Context, id string) (*storage.Medication, error) {
	if medication, ok := c.cache.Get(id); ok {
		return &medication, nil
	}

	medication, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Add(id, *medication)

	return medication, nil
}

// Invalidate drops a cached entry after the catalog changed.
func (c *Cache) Invalidate(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached medications.
func (c *Cache) Len() int {
	return c.cache.Len()
}
