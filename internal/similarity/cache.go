package similarity

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEncoder keeps recently produced embeddings in an LRU cache and only
// forwards texts it has not seen to the wrapped encoder.
type CachedEncoder struct {
	enc    Encoder
	cache  *lru.Cache[string, []float32]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedEncoder wraps enc with a cache holding up to size embeddings
func NewCachedEncoder(enc Encoder, size int) (*CachedEncoder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEncoder{enc: enc, cache: cache}, nil
}

// EmbedBatch returns cached vectors and encodes the misses in one call
func (c *CachedEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		missing []string
		slots   [][]int // positions in out for each missing text
		seen    = make(map[string]int)
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = v
			c.hits.Add(1)
			continue
		}
		if k, ok := seen[text]; ok {
			slots[k] = append(slots[k], i)
			continue
		}
		seen[text] = len(missing)
		missing = append(missing, text)
		slots = append(slots, []int{i})
	}

	if len(missing) == 0 {
		return out, nil
	}
	c.misses.Add(int64(len(missing)))

	vectors, err := c.enc.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	for k, v := range vectors {
		c.cache.Add(missing[k], v)
		for _, i := range slots[k] {
			out[i] = v
		}
	}
	return out, nil
}

// Stats returns the cache hit and miss counters
func (c *CachedEncoder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached embeddings
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}
