package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider implements Provider using an Ollama embedding model
type OllamaProvider struct {
	embedder  embeddings.Embedder
	embedName string
	baseURL   string
}

// NewOllamaProvider creates a new Ollama embedding provider
func NewOllamaProvider(cfg config.LLMConfig) (*OllamaProvider, error) {
	// Server URL
	baseURL := cfg.OllamaBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	embedModelName := cfg.OllamaEmbed
	if embedModelName == "" {
		return nil, fmt.Errorf("ollama embedding model is required (set ollama_embed)")
	}

	client, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(embedModelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama embedding client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	// Code is whitespace sensitive, keep newlines intact
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama embedder: %w", err)
	}

	slog.Debug("ollama embedder ready", "model", embedModelName, "url", baseURL, "batch_size", batchSize)

	return &OllamaProvider{
		embedder:  embedder,
		embedName: embedModelName,
		baseURL:   baseURL,
	}, nil
}

// Embed generates an embedding using the Ollama embedding model
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return vector, nil
}

// EmbedBatch generates embeddings for all texts; langchaingo splits them into
// requests of the configured batch size.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if err := checkBatch(p.Name(), texts, vectors); err != nil {
		return nil, err
	}

	slog.Debug("ollama embeddings", "count", len(vectors), "model", p.embedName)
	return vectors, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the embedding model name
func (p *OllamaProvider) Model() string {
	return p.embedName
}

// BaseURL returns the Ollama server URL
func (p *OllamaProvider) BaseURL() string {
	return p.baseURL
}
