package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var codeTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|[0-9]+|[^\sA-Za-z0-9_]`)

// HashingProvider is an offline Provider that projects identifier/operator
// tokens and character trigrams into a fixed number of buckets (feature
// hashing). It needs no model server and is fully deterministic.
//
// Its vectors measure surface token overlap only. Code that is equivalent
// but uses other identifiers (add(a, b) vs addition(x, y)) gets a low body
// score, so it is a fallback for offline runs and tests, not a substitute
// for an embedding model.
type HashingProvider struct {
	dims int
}

// NewHashingProvider creates a hashing provider producing dims-long vectors
func NewHashingProvider(dims int) (*HashingProvider, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("hashing dimensions must be positive, got %d", dims)
	}
	return &HashingProvider{dims: dims}, nil
}

// Embed hashes text into a vector. Blank text yields an all-zero vector.
func (p *HashingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, p.dims)

	for _, tok := range codeTokenRe.FindAllString(text, -1) {
		p.add(vector, "t:"+tok, 1)
	}

	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(normalized)
	for i := 0; i+3 <= len(runes); i++ {
		p.add(vector, "g:"+string(runes[i:i+3]), 0.5)
	}

	return vector, nil
}

func (p *HashingProvider) add(vector []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(p.dims)
	// The top bit picks the sign so collisions tend to cancel out
	if h>>63 == 1 {
		weight = -weight
	}
	vector[bucket] += weight
}

// EmbedBatch embeds every text in order
func (p *HashingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// Name returns the provider name
func (p *HashingProvider) Name() string {
	return "hashing"
}

// Dimensions returns the vector length
func (p *HashingProvider) Dimensions() int {
	return p.dims
}
