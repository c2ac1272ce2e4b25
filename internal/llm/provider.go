package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/utils"
)

// Provider represents an embedding capability: given text, return a
// fixed-length vector.
type Provider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name
	Name() string
}

// NewProvider creates a new embedding provider based on configuration
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch cfg.Provider {
	case "", "ollama":
		p, err = NewOllamaProvider(*cfg)
	case "gemini":
		p, err = NewGeminiProvider(ctx, *cfg)
	case "hashing":
		p, err = NewHashingProvider(cfg.HashingDimensions)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: ollama, gemini, hashing)", cfg.Provider)
	}
	if err != nil {
		// Ensure we don't return a non-nil Provider when err != nil
		return nil, err
	}

	// The hashing provider is local and deterministic, retries add nothing
	if cfg.Provider == "hashing" {
		return p, nil
	}
	return NewRetryableProvider(p, cfg.MaxRetries, cfg.Timeout), nil
}

// RetryableProvider wraps a provider with retry logic
type RetryableProvider struct {
	provider   Provider
	maxRetries int
	timeout    time.Duration
}

// NewRetryableProvider creates a new retryable provider
func NewRetryableProvider(provider Provider, maxRetries int, timeout time.Duration) *RetryableProvider {
	return &RetryableProvider{
		provider:   provider,
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

func (r *RetryableProvider) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Embed generates an embedding with retry logic
func (r *RetryableProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := utils.RetryContext(ctx, r.maxRetries, time.Second, func() error {
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		var err error
		result, err = r.provider.Embed(attemptCtx, text)
		return err
	}, nil)
	return result, err
}

// EmbedBatch generates embeddings with retry logic
func (r *RetryableProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := utils.RetryContext(ctx, r.maxRetries, time.Second, func() error {
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		var err error
		result, err = r.provider.EmbedBatch(attemptCtx, texts)
		return err
	}, nil)
	return result, err
}

// Name returns the provider name
func (r *RetryableProvider) Name() string {
	return r.provider.Name()
}

var _ Provider = (*RetryableProvider)(nil)
var _ io.Closer = (*RetryableProvider)(nil)

// Close implements io.Closer
func (r *RetryableProvider) Close() error {
	if closer, ok := r.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func checkBatch(name string, texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%s returned %d embeddings for %d texts", name, len(vectors), len(texts))
	}
	return nil
}
