package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Encoder is the embedding capability: given texts, return one fixed-length
// vector per text in input order. llm.Provider implementations satisfy it.
type Encoder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultBatchSize is used when Encode is called with a non-positive batch size
const DefaultBatchSize = 32

// VectorStore is an arena of texts and their embeddings. Texts are added
// once (deduplicated) and referenced by index afterwards, so every distinct
// text is sent to the encoder exactly once no matter how many pairs use it.
type VectorStore struct {
	texts   []string
	index   map[string]int
	vectors [][]float32
	pending int // texts[pending:] have not been encoded yet
	neutral float64
}

// NewVectorStore creates an empty store. neutral is the score reported for
// pairs involving a text without a vector.
func NewVectorStore(neutral float64) *VectorStore {
	return &VectorStore{
		index:   make(map[string]int),
		neutral: neutral,
	}
}

// Add registers text and returns its index. Adding the same text again
// returns the existing index.
func (s *VectorStore) Add(text string) int {
	if i, ok := s.index[text]; ok {
		return i
	}
	i := len(s.texts)
	s.texts = append(s.texts, text)
	s.vectors = append(s.vectors, nil)
	s.index[text] = i
	return i
}

// Len returns the number of distinct texts
func (s *VectorStore) Len() int {
	return len(s.texts)
}

// Text returns the text stored at index i
func (s *VectorStore) Text(i int) string {
	return s.texts[i]
}

// Vector returns the embedding at index i, nil when it has none (blank text
// or a failed batch).
func (s *VectorStore) Vector(i int) []float32 {
	if i < 0 || i >= len(s.vectors) {
		return nil
	}
	return s.vectors[i]
}

// BatchErrorHandler decides what happens when a batch fails to encode.
// Returning nil skips the batch (its texts keep no vector); returning an
// error aborts Encode with that error.
type BatchErrorHandler func(texts []string, err error) error

// Encode embeds every text added since the previous call, in batches of at
// most batchSize texts. Blank texts are never sent to the encoder. A nil
// onError aborts on the first failure.
func (s *VectorStore) Encode(ctx context.Context, enc Encoder, batchSize int, onError BatchErrorHandler) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var todo []int
	for i := s.pending; i < len(s.texts); i++ {
		if strings.TrimSpace(s.texts[i]) != "" {
			todo = append(todo, i)
		}
	}
	s.pending = len(s.texts)

	for start := 0; start < len(todo); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids := todo[start:min(start+batchSize, len(todo))]
		batch := make([]string, len(ids))
		for j, id := range ids {
			batch[j] = s.texts[id]
		}

		vectors, err := enc.EmbedBatch(ctx, batch)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		if err != nil {
			if onError == nil {
				return err
			}
			if herr := onError(batch, err); herr != nil {
				return herr
			}
			continue
		}

		for j, id := range ids {
			s.vectors[id] = vectors[j]
		}
		slog.Debug("encoded batch", "size", len(batch), "done", start+len(ids), "total", len(todo))
	}
	return nil
}

// Ratio returns the semantic score between the texts at indices i and j
func (s *VectorStore) Ratio(i, j int) float64 {
	return SemanticRatio(s.Vector(i), s.Vector(j), s.neutral)
}

// Matrix computes the pairwise semantic scores of rows × cols
func (s *VectorStore) Matrix(rows, cols []int) [][]float64 {
	m := make([][]float64, len(rows))
	for r, i := range rows {
		m[r] = make([]float64, len(cols))
		for c, j := range cols {
			m[r][c] = s.Ratio(i, j)
		}
	}
	return m
}

// SemanticScorer scores single pairs of texts. For many pairs use a
// VectorStore so each text is encoded once.
type SemanticScorer struct {
	enc     Encoder
	neutral float64
}

// NewSemanticScorer creates a scorer over enc
func NewSemanticScorer(enc Encoder, neutral float64) *SemanticScorer {
	return &SemanticScorer{enc: enc, neutral: neutral}
}

// Ratio encodes a and b in a single encoder call and returns their score
func (s *SemanticScorer) Ratio(ctx context.Context, a, b string) (float64, error) {
	store := NewVectorStore(s.neutral)
	i, j := store.Add(a), store.Add(b)
	if err := store.Encode(ctx, s.enc, 2, nil); err != nil {
		return s.neutral, err
	}
	return store.Ratio(i, j), nil
}
