// Package cache memoizes built vector indexes by document fingerprint so a
// repeated document never repeats embedding work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/satyajitsk27/zania/internal/models"
	"github.com/satyajitsk27/zania/internal/vectorindex"
)

// Fingerprint derives the cache key from the document kind and raw bytes.
func Fingerprint(kind models.DocumentKind, data []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IndexCache is a bounded LRU of built indexes. Concurrent builds of the
// same fingerprint are coalesced through singleflight, so two racing
// requests for a new document embed it once. Callers never observe a
// partially built index.
type IndexCache struct {
	entries *lru.Cache[string, *vectorindex.Index]
	group   singleflight.Group
}

// New creates a cache holding at most capacity indexes, evicting the least
// recently used entry when full.
func New(capacity int) (*IndexCache, error) {
	entries, err := lru.New[string, *vectorindex.Index](capacity)
	if err != nil {
		return nil, err
	}
	return &IndexCache{entries: entries}, nil
}

// GetOrBuild returns the cached index for fingerprint, building and
// storing it when absent. The second return reports whether the call was
// served from cache.
func (c *IndexCache) GetOrBuild(ctx context.Context, fingerprint string, build func(ctx context.Context) (*vectorindex.Index, error)) (*vectorindex.Index, bool, error) {
	if idx, ok := c.entries.Get(fingerprint); ok {
		return idx, true, nil
	}

	hit := true
	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		// someone may have finished the build between the miss and here
		if idx, ok := c.entries.Get(fingerprint); ok {
			return idx, nil
		}
		hit = false
		idx, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(fingerprint, idx)
		return idx, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*vectorindex.Index), hit, nil
}

// Len returns the number of cached indexes.
func (c *IndexCache) Len() int { return c.entries.Len() }
