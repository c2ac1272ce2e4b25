package compare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/doITmagic/repo-similarity/internal/analyzers"
	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/similarity"
)

// Engine runs complete analyses: extract both trees, compare, report.
// Embeddings are cached for the lifetime of the engine, so repeated analyses
// (watch mode) only encode texts that changed.
type Engine struct {
	cfg     *config.Config
	encoder similarity.Encoder
}

// NewEngine creates an engine. cfg must have been validated. When
// similarity.embedding_cache_size is positive, enc is wrapped in an LRU cache
// shared by every Analyze call of this engine.
func NewEngine(cfg *config.Config, enc similarity.Encoder) *Engine {
	if size := cfg.Similarity.EmbeddingCacheSize; size > 0 {
		cached, err := similarity.NewCachedEncoder(enc, size)
		if err != nil {
			slog.Warn("embedding cache disabled", "size", size, "error", err)
		} else {
			enc = cached
		}
	}
	return &Engine{cfg: cfg, encoder: enc}
}

// Analyze compares repoA against repoB and returns the aggregate score with
// the itemized report. The aggregate is the mean, over every unit of repoA,
// of its best pair score against repoB (0 when there is nothing to compare).
func (e *Engine) Analyze(ctx context.Context, repoA, repoB string) (score float64, report *MatchReport, err error) {
	if e.cfg.Similarity.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Similarity.AnalysisTimeout)
		defer cancel()
	}

	ctx, span := startSpan(ctx, "compare.analyze",
		attribute.String("analyze.repo_a", repoA),
		attribute.String("analyze.repo_b", repoB),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(
				attribute.Float64("analyze.score", score),
				attribute.Int("analyze.function_pairs", len(report.Functions)),
				attribute.Int("analyze.model_pairs", len(report.Models)),
			)
		}
		endSpan(span, err)
	}()

	start := time.Now()

	languages, err := analyzers.ResolveLanguages(e.cfg.Similarity.Languages, e.cfg.Similarity.Exclude, repoA, repoB)
	if err != nil {
		return 0, nil, err
	}
	manager, err := analyzers.NewManager(&e.cfg.Similarity, languages)
	if err != nil {
		return 0, nil, err
	}

	unitsA, err := e.extract(ctx, manager, repoA)
	if err != nil {
		return 0, nil, err
	}
	unitsB, err := e.extract(ctx, manager, repoB)
	if err != nil {
		return 0, nil, err
	}

	agg := NewAggregator(e.encoder, OptionsFromConfig(e.cfg))
	report = NewMatchReport()

	cctx, cspan := startSpan(ctx, "compare.functions",
		attribute.Int("compare.left", len(unitsA.Functions)),
		attribute.Int("compare.right", len(unitsB.Functions)),
	)
	report.Functions, err = agg.CompareFunctions(cctx, unitsA.Functions, unitsB.Functions)
	endSpan(cspan, err)
	if err != nil {
		return 0, nil, err
	}

	_, mspan := startSpan(ctx, "compare.models",
		attribute.Int("compare.left", len(unitsA.Models)),
		attribute.Int("compare.right", len(unitsB.Models)),
	)
	report.Models = agg.CompareModels(unitsA.Models, unitsB.Models)
	endSpan(mspan, nil)

	score = AggregateScore(unitsA, report)

	if cached, ok := e.encoder.(*similarity.CachedEncoder); ok {
		hits, misses := cached.Stats()
		slog.Debug("embedding cache", "hits", hits, "misses", misses)
	}
	slog.Info("analysis complete",
		"repo_a", repoA,
		"repo_b", repoB,
		"score", score,
		"function_pairs", len(report.Functions),
		"model_pairs", len(report.Models),
		"duration", time.Since(start).Round(time.Millisecond))

	return score, report, nil
}

func (e *Engine) extract(ctx context.Context, manager *analyzers.Manager, root string) (codetypes.Units, error) {
	ctx, span := startSpan(ctx, "compare.extract", attribute.String("extract.root", root))
	res, err := manager.Extract(ctx, root)
	if err != nil {
		endSpan(span, err)
		return codetypes.Units{}, err
	}
	span.SetAttributes(
		attribute.Int("extract.files", res.Files),
		attribute.Int("extract.failed", len(res.Failures)),
		attribute.Int("extract.functions", len(res.Units.Functions)),
		attribute.Int("extract.models", len(res.Units.Models)),
	)
	endSpan(span, nil)
	return res.Units, nil
}

// AggregateScore averages, over every unit of a, the best score that unit
// reached in the report. Units without any reported pair count as 0.
func AggregateScore(a codetypes.Units, report *MatchReport) float64 {
	total := len(a.Functions) + len(a.Models)
	if total == 0 {
		return 0
	}

	bestFn := make([]float64, len(a.Functions))
	for _, p := range report.Functions {
		bestFn[p.Index1] = max(bestFn[p.Index1], p.Similarity)
	}
	bestModel := make([]float64, len(a.Models))
	for _, p := range report.Models {
		bestModel[p.Index1] = max(bestModel[p.Index1], p.Similarity)
	}

	var sum float64
	for _, s := range bestFn {
		sum += s
	}
	for _, s := range bestModel {
		sum += s
	}
	return similarity.Round2(sum / float64(total))
}

// Analyze is a convenience wrapper around NewEngine(cfg, enc).Analyze
func Analyze(ctx context.Context, cfg *config.Config, enc similarity.Encoder, repoA, repoB string) (float64, *MatchReport, error) {
	if cfg == nil {
		return 0, nil, fmt.Errorf("config is required")
	}
	return NewEngine(cfg, enc).Analyze(ctx, repoA, repoB)
}
