package embedder

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cached wraps a Provider with an in-memory embedding cache.
//
// Query strings repeat often across respond ticks (plans, persona names,
// recurring topics), so vectors are memoised by text. Each entry costs 1; the
// cache holds roughly size entries. Admission is asynchronous, so a value set
// just before a Get may still miss.
type Cached struct {
	Provider
	cache *ristretto.Cache
}

// NewCached wraps p with a cache of about size entries.
func NewCached(p Provider, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("NewCached: size must be positive, got %d", size)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("NewCached: %w", err)
	}
	return &Cached{Provider: p, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v.([]float64)), nil
	}
	v, err := c.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, clone(v), 1)
	return v, nil
}

// EmbedBatch embeds texts through the cache one by one.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return EmbedEach(ctx, c, texts)
}

// Wait blocks until pending cache writes are visible to Embed.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close stops the cache and closes the wrapped provider.
func (c *Cached) Close() error {
	c.cache.Close()
	return c.Provider.Close()
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
