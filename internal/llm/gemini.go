package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doITmagic/repo-similarity/internal/config"
	"google.golang.org/genai"
)

// geminiMaxBatch is the request limit of the batch embedding endpoint
const geminiMaxBatch = 100

// GeminiProvider implements Provider using the Gemini embedding API
type GeminiProvider struct {
	cli       *genai.Client
	model     string
	batchSize int
}

// NewGeminiProvider creates a Gemini embedding provider. An empty API key
// lets the client fall back to GEMINI_API_KEY / GOOGLE_API_KEY.
func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig) (*GeminiProvider, error) {
	if cfg.GeminiEmbedModel == "" {
		return nil, fmt.Errorf("gemini embedding model is required (set gemini_embed_model)")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > geminiMaxBatch {
		batchSize = geminiMaxBatch
	}

	return &GeminiProvider{cli: cli, model: cfg.GeminiEmbedModel, batchSize: batchSize}, nil
}

// Embed generates an embedding for a single text
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings in requests of at most batchSize texts
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
		}

		resp, err := p.cli.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embed content: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), end-start)
		}
		for _, emb := range resp.Embeddings {
			result = append(result, emb.Values)
		}
	}

	slog.Debug("gemini embeddings", "count", len(result), "model", p.model)
	return result, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}
