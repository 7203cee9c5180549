package httputil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/relnet/pkg/cache"
)

// Cache stores JSON-marshalable values in a [cache.Cache] under a namespace.
//
// Keys are generated with the keyer's HTTPKey, so namespaces from different
// providers never collide. A nil backend disables caching.
type Cache struct {
	backend   cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
}

// NewCache returns a namespaced JSON cache. A nil keyer uses the default layout.
func NewCache(backend cache.Cache, keyer cache.Keyer, namespace string, ttl time.Duration) *Cache {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cache{backend: backend, keyer: keyer, namespace: namespace, ttl: ttl}
}

// Get retrieves a cached value by key and unmarshals it into v.
//
//   - (true, nil): cache hit, v is populated
//   - (false, nil): cache miss, v is unchanged
//   - (false, err): backend or decode failure
func (c *Cache) Get(ctx context.Context, key string, v any) (bool, error) {
	data, hit, err := c.backend.Get(ctx, c.keyer.HTTPKey(c.namespace, key))
	if err != nil || !hit {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key, replacing any existing entry and refreshing its TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, c.keyer.HTTPKey(c.namespace, key), data, c.ttl)
}
