package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/doITmagic/repo-similarity/internal/config"
)

func TestNewProvider_UnknownProvider(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "unknown"}

	p, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected error for unknown provider, got nil")
	}
	if !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil provider on error, got %#v", p)
	}
}

func TestNewProvider_OllamaMissingModel(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "ollama"}

	p, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected error when ollama embedding model is missing, got nil")
	}
	if !strings.Contains(err.Error(), "ollama embedding model is required") {
		t.Errorf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil provider on error, got %#v", p)
	}
}

func TestNewProvider_DefaultOllama(t *testing.T) {
	cfg := &config.LLMConfig{
		Provider:      "", // implicit ollama
		OllamaEmbed:   "dummy-embed",
		OllamaBaseURL: "http://localhost:11434",
		MaxRetries:    2,
		Timeout:       time.Second,
	}

	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected provider, got error: %v", err)
	}
	if p == nil {
		t.Fatalf("expected non-nil provider")
	}
	if p.Name() != "ollama" {
		t.Errorf("expected provider name 'ollama', got %q", p.Name())
	}
	if _, ok := p.(*RetryableProvider); !ok {
		t.Errorf("expected ollama provider to be wrapped with retries, got %T", p)
	}
}

func TestNewProvider_Hashing(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "hashing", HashingDimensions: 64}

	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected provider, got error: %v", err)
	}
	if _, ok := p.(*HashingProvider); !ok {
		t.Errorf("expected *HashingProvider, got %T", p)
	}
}

type fakeProvider struct {
	embedResult []float32
	embedErr    error
	embedCalls  int

	batchErrs  []error // consumed one per EmbedBatch call
	batchCalls int

	name string
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	return f.embedResult, f.embedErr
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if len(f.batchErrs) > 0 {
		err := f.batchErrs[0]
		f.batchErrs = f.batchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.embedResult
	}
	return out, nil
}

func (f *fakeProvider) Name() string {
	if f.name != "" {
		return f.name
	}
	return "fake"
}

// Ensure fakeProvider implements Provider
var _ Provider = (*fakeProvider)(nil)

func TestRetryableProvider_Success(t *testing.T) {
	base := &fakeProvider{
		embedResult: []float32{1, 2, 3},
	}

	r := NewRetryableProvider(base, 3, 2*time.Second)
	ctx := context.Background()

	emb, err := r.Embed(ctx, "text")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if !reflect.DeepEqual(emb, []float32{1, 2, 3}) {
		t.Errorf("unexpected embedding: %#v", emb)
	}
	if base.embedCalls != 1 {
		t.Errorf("expected 1 embed call, got %d", base.embedCalls)
	}

	if r.Name() != base.Name() {
		t.Errorf("expected Name to be forwarded, got %q", r.Name())
	}
}

func TestRetryableProvider_BatchRetriesTransientError(t *testing.T) {
	base := &fakeProvider{
		embedResult: []float32{0.5},
		batchErrs:   []error{errors.New("connection reset"), nil},
	}

	r := NewRetryableProvider(base, 2, time.Second)

	got, err := r.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if base.batchCalls != 2 {
		t.Errorf("expected 2 batch calls, got %d", base.batchCalls)
	}
}

func TestRetryableProvider_ErrorNoRetry(t *testing.T) {
	base := &fakeProvider{
		embedErr: errors.New("boom"),
	}

	// maxRetries = 1 -> no retry is performed, but the Retry utility is used
	r := NewRetryableProvider(base, 1, time.Second)

	_, err := r.Embed(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected error from Embed, got nil")
	}
	if !strings.Contains(err.Error(), "failed after 1 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
	if base.embedCalls != 1 {
		t.Errorf("expected 1 embed call, got %d", base.embedCalls)
	}
}

type closableFakeProvider struct {
	fakeProvider
	closed bool
}

func (c *closableFakeProvider) Close() error {
	c.closed = true
	return nil
}

func TestRetryableProvider_CloseDelegates(t *testing.T) {
	base := &closableFakeProvider{}
	r := NewRetryableProvider(base, 1, time.Second)

	if err := r.Close(); err != nil {
		t.Fatalf("expected nil error from Close, got %v", err)
	}
	if !base.closed {
		t.Errorf("expected underlying provider Close to be called")
	}
}

func TestRetryableProvider_CloseNoCloser(t *testing.T) {
	base := &fakeProvider{}
	r := NewRetryableProvider(base, 1, time.Second)

	if err := r.Close(); err != nil {
		t.Fatalf("expected nil error from Close, got %v", err)
	}
}
