package pipeline

import (
	"maps"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/doctree"
)

// TreeCache keeps recently built trees keyed by content hash and file
// extension, so re-submitting an unchanged document skips parsing.
type TreeCache struct {
	lru *lru.Cache[string, *builder.Result]
}

// NewTreeCache returns a cache holding up to size trees. A size <= 0
// disables caching and returns nil; a nil cache is valid and never hits.
func NewTreeCache(size int) (*TreeCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, *builder.Result](size)
	if err != nil {
		return nil, err
	}
	return &TreeCache{lru: c}, nil
}

// CacheKey derives the cache key for a document.
func CacheKey(filename string, data []byte) string {
	return ContentHashHex(data) + strings.ToLower(filepath.Ext(filename))
}

// Get returns a copy of the cached result.
func (c *TreeCache) Get(key string) (*builder.Result, bool) {
	if c == nil {
		return nil, false
	}
	r, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return copyResult(r), true
}

// Add stores a copy of r.
func (c *TreeCache) Add(key string, r *builder.Result) {
	if c == nil || r == nil {
		return
	}
	c.lru.Add(key, copyResult(r))
}

// Len returns the number of cached trees.
func (c *TreeCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func copyResult(r *builder.Result) *builder.Result {
	return &builder.Result{
		Title:  r.Title,
		Fields: maps.Clone(r.Fields),
		Nodes:  doctree.CloneTree(r.Nodes),
	}
}
