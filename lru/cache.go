// Package lru caches raw file content in memory.
package lru

import (
	"context"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for the raw content cache.
const (
	DefaultSize = 512
	DefaultTTL  = 5 * time.Minute
)

// Ensure RawContentCache implements docindex.RawContentService at compile time.
var _ docindex.RawContentService = (*RawContentCache)(nil)

// RawContentCache decorates a RawContentService with an expiring LRU cache.
// Only successful responses are cached. The credential is not part of the
// key: the proxied content is public.
type RawContentCache struct {
	next  docindex.RawContentService
	cache *expirable.LRU[docindex.RawContentRequest, *docindex.RawContent]
}

// NewRawContentCache wraps next. Non-positive size or ttl select the defaults.
func NewRawContentCache(next docindex.RawContentService, size int, ttl time.Duration) *RawContentCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RawContentCache{
		next:  next,
		cache: expirable.NewLRU[docindex.RawContentRequest, *docindex.RawContent](size, nil, ttl),
	}
}

func (c *RawContentCache) FetchRaw(ctx context.Context, req docindex.RawContentRequest, token docindex.Credential) (*docindex.RawContent, error) {
	if content, ok := c.cache.Get(req); ok {
		return content, nil
	}
	content, err := c.next.FetchRaw(ctx, req, token)
	if err != nil {
		return nil, err
	}
	c.cache.Add(req, content)
	return content, nil
}

// Len returns the number of cached entries.
func (c *RawContentCache) Len() int {
	return c.cache.Len()
}
