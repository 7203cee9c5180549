// Package cache stores compiled graphs, rendered artifacts and image lookups.
//
// All backends implement [Cache], a byte-oriented key/value store with
// per-entry TTL:
//
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: shared cache for `relnet serve` deployments
//   - [MongoCache]: document-store backend with a TTL index
//   - [NewNullCache]: disables caching
//
// Keys are produced by a [Keyer] so that every consumer agrees on the layout:
//
//	k := cache.NewDefaultKeyer()
//	k.GraphKey(cache.Hash(doc))
//	k.ArtifactKey(graphHash, cache.ArtifactKeyOpts{Format: "svg"})
package cache

import (
	"context"
	"time"
)

// Default TTLs for cached entries.
const (
	TTLGraph    = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
	TTLHTTP     = 24 * time.Hour
)

// Cache is a byte-oriented key/value store.
//
// Get returns (nil, false, nil) on a miss. A ttl of zero means the entry
// never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Layout string `json:"layout,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// HTTPKey keys a cached upstream response, such as an image lookup.
	HTTPKey(namespace, key string) string
	// GraphKey keys a compiled graph by document hash. Only graphs compiled
	// without images are cached, so the document alone determines them.
	GraphKey(docHash string) string
	// ArtifactKey keys a rendered artifact by graph hash and render options.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) GraphKey(docHash string) string {
	return "graph:" + docHash
}

func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
