// Package cache stores fetched datasets and rendered exports.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entry files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the viewer server
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys are built by a [Keyer] so every backend shares one layout:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ExportKey(cache.Hash(datasetJSON), cache.ExportKeyOpts{Format: "svg"})
//	data, ok, err := c.Get(ctx, key)
//
// Wrap a backend with [Observe] to report hits and misses to the
// observability cache hooks.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind.
const (
	HTTPTTL   = time.Hour
	ExportTTL = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiration.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	HTTPKey(namespace, key string) string
	ExportKey(datasetHash string, opts ExportKeyOpts) string
}

// ExportKeyOpts identifies one rendering of a dataset.
type ExportKeyOpts struct {
	Format        string  `json:"format"`
	CollapseDepth int     `json:"collapse_depth"`
	SpacingX      float64 `json:"spacing_x"`
	SpacingY      float64 `json:"spacing_y"`
	Tooltip       bool    `json:"tooltip"`
	Legend        bool    `json:"legend"`
}

// DefaultKeyer produces unscoped keys of the form kind:hash.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns http:<namespace>:<key>. Keys stay readable so that
// `trialviz cache` listings are useful.
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ExportKey hashes the dataset hash together with the render options.
func (DefaultKeyer) ExportKey(datasetHash string, opts ExportKeyOpts) string {
	return hashKey("export", datasetHash, opts)
}

var _ Keyer = DefaultKeyer{}
