// Package compare pairs the units of two repositories, scores every pair
// lexically and semantically, and assembles the match report.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/similarity"
)

// ErrEncoder marks a run aborted because the encoder failed under the
// "fail" policy
var ErrEncoder = errors.New("encoder failure")

// Options tune the aggregator
type Options struct {
	LexicalAlgorithm   string
	CaseInsensitive    bool
	FunctionThreshold  float64 // function pairs scoring below it are dropped
	ModelNameThreshold float64 // model pairs need a name score above it
	EncoderFailure     string  // config.EncoderFailureNeutral or config.EncoderFailureFail
	NeutralScore       float64
	BatchSize          int
}

// OptionsFromConfig maps the configuration onto aggregator options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		LexicalAlgorithm:   cfg.Similarity.LexicalAlgorithm,
		CaseInsensitive:    cfg.Similarity.CaseInsensitive,
		FunctionThreshold:  cfg.Similarity.FunctionThreshold,
		ModelNameThreshold: cfg.Similarity.ModelNameThreshold,
		EncoderFailure:     cfg.Similarity.EncoderFailure,
		NeutralScore:       cfg.Similarity.NeutralScore,
		BatchSize:          cfg.LLM.BatchSize,
	}
}

// Aggregator combines lexical and semantic signals into pair scores. The
// encoder is injected so tests and hosts can supply their own.
type Aggregator struct {
	lexical *similarity.LexicalScorer
	encoder similarity.Encoder
	opts    Options
}

// NewAggregator creates an aggregator using enc for semantic scores
func NewAggregator(enc similarity.Encoder, opts Options) *Aggregator {
	return &Aggregator{
		lexical: similarity.NewLexicalScorer(opts.LexicalAlgorithm, opts.CaseInsensitive),
		encoder: enc,
		opts:    opts,
	}
}

// CompareFunctions scores every pair of f1 × f2. Each distinct name,
// signature and body text is encoded exactly once, in batches, and the
// pairwise scores are read from the resulting vectors.
func (a *Aggregator) CompareFunctions(ctx context.Context, f1, f2 []codetypes.FunctionUnit) ([]PairScore, error) {
	scores := []PairScore{}
	if len(f1) == 0 || len(f2) == 0 {
		return scores, nil
	}

	// One encoding pass per repository; texts shared with repository A are
	// not sent again for B.
	store := similarity.NewVectorStore(a.opts.NeutralScore)
	ids1 := addFunctionTexts(store, f1)
	if err := a.encode(ctx, store); err != nil {
		return nil, err
	}
	ids2 := addFunctionTexts(store, f2)
	if err := a.encode(ctx, store); err != nil {
		return nil, err
	}

	for i, fa := range f1 {
		for j, fb := range f2 {
			if i%64 == 0 && j == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			s := a.scoreFunctions(store, fa, fb, ids1[i], ids2[j])
			if s.Similarity < a.opts.FunctionThreshold {
				continue
			}
			s.Index1, s.Index2 = i, j
			scores = append(scores, s)
		}
	}
	return scores, nil
}

// functionTexts holds the store indices of one function's texts
type functionTexts struct {
	name, signature, body int
}

func addFunctionTexts(store *similarity.VectorStore, fns []codetypes.FunctionUnit) []functionTexts {
	ids := make([]functionTexts, len(fns))
	for i, fn := range fns {
		ids[i] = functionTexts{
			name:      store.Add(fn.Name),
			signature: store.Add(fn.Signature()),
			body:      store.Add(fn.BodyText),
		}
	}
	return ids
}

func (a *Aggregator) encode(ctx context.Context, store *similarity.VectorStore) error {
	ctx, span := startSpan(ctx, "compare.encode", attribute.Int("encode.texts", store.Len()))

	var onError similarity.BatchErrorHandler
	if a.opts.EncoderFailure != config.EncoderFailureFail {
		onError = func(texts []string, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("encoder failed, using neutral score", "texts", len(texts), "neutral", a.opts.NeutralScore, "error", err)
			return nil
		}
	}

	err := store.Encode(ctx, a.encoder, a.opts.BatchSize, onError)
	if err != nil && ctx.Err() == nil {
		err = fmt.Errorf("%w: %w", ErrEncoder, err)
	}
	endSpan(span, err)
	return err
}

func (a *Aggregator) scoreFunctions(store *similarity.VectorStore, fa, fb codetypes.FunctionUnit, ta, tb functionTexts) PairScore {
	s := PairScore{
		Name1:             fa.Name,
		Name2:             fb.Name,
		NameLexical:       a.lexical.Ratio(fa.Name, fb.Name),
		NameSemantic:      store.Ratio(ta.name, tb.name),
		SignatureLexical:  a.lexical.Ratio(fa.Signature(), fb.Signature()),
		SignatureSemantic: store.Ratio(ta.signature, tb.signature),
		BodySemantic:      store.Ratio(ta.body, tb.body),
	}
	nameAvg := (s.NameLexical + s.NameSemantic) / 2
	sigAvg := (s.SignatureLexical + s.SignatureSemantic) / 2
	s.Similarity = similarity.Round2((nameAvg + sigAvg + s.BodySemantic) / 3)
	return s
}

// CompareModels scores model pairs. Field sets are compared only when the
// model names are lexically similar above the configured threshold; other
// pairs are left out of the result.
func (a *Aggregator) CompareModels(m1, m2 []codetypes.ModelUnit) []ModelPairScore {
	scores := []ModelPairScore{}
	for i, ma := range m1 {
		for j, mb := range m2 {
			nameScore := a.lexical.Ratio(ma.Name, mb.Name)
			if nameScore <= a.opts.ModelNameThreshold {
				continue
			}
			fc := CompareFields(ma.Fields, mb.Fields)
			scores = append(scores, ModelPairScore{
				Name1:           ma.Name,
				Name2:           mb.Name,
				Similarity:      similarity.Round2((nameScore + fc.FieldSimilarity) / 2),
				FieldComparison: fc,
				NameLexical:     nameScore,
				Index1:          i,
				Index2:          j,
			})
		}
	}
	return scores
}

// CompareFields intersects two field sets by exact descriptor equality.
// The similarity is |common| / |union| * 100, or 0 for two empty sets.
func CompareFields(a, b []codetypes.FieldDescriptor) FieldComparison {
	inB := make(map[codetypes.FieldDescriptor]struct{}, len(b))
	for _, f := range b {
		inB[f] = struct{}{}
	}

	seenA := make(map[codetypes.FieldDescriptor]struct{}, len(a))
	common := []codetypes.FieldDescriptor{}
	for _, f := range a {
		if _, dup := seenA[f]; dup {
			continue
		}
		seenA[f] = struct{}{}
		if _, ok := inB[f]; ok {
			common = append(common, f)
		}
	}

	union := len(seenA) + len(inB) - len(common)
	fc := FieldComparison{CommonFields: common}
	if union > 0 {
		fc.FieldSimilarity = similarity.Round2(float64(len(common)) / float64(union) * 100)
	}
	return fc
}
