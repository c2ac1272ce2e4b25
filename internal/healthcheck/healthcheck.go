package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/doITmagic/repo-similarity/internal/config"
	"github.com/doITmagic/repo-similarity/internal/similarity"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Service string
	Status  string
	Message string
	Error   error
}

const checkTimeout = 5 * time.Second

// CheckOllama verifies Ollama is running and accessible
func CheckOllama(ctx context.Context, baseURL string) CheckResult {
	result := CheckResult{
		Service: "Ollama",
		Status:  "unknown",
	}

	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		result.Status = "error"
		result.Error = err
		result.Message = fmt.Sprintf("Failed to create request: %v", err)
		return result
	}

	client := &http.Client{Timeout: checkTimeout}
	resp, err := client.Do(req)
	if err != nil {
		result.Status = "error"
		result.Error = err
		result.Message = fmt.Sprintf("Cannot connect to Ollama at %s", baseURL)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Connected to Ollama at %s", baseURL)
	} else {
		result.Status = "error"
		result.Message = fmt.Sprintf("Ollama returned status %d", resp.StatusCode)
	}

	return result
}

// CheckEncoder embeds a sample text and verifies a non-empty vector comes back
func CheckEncoder(ctx context.Context, enc similarity.Encoder) CheckResult {
	result := CheckResult{
		Service: "Encoder",
		Status:  "unknown",
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	vectors, err := enc.EmbedBatch(ctx, []string{"def add(a, b):\n    return a + b"})
	switch {
	case err != nil:
		result.Status = "error"
		result.Error = err
		result.Message = fmt.Sprintf("Embedding request failed: %v", err)
	case len(vectors) != 1 || len(vectors[0]) == 0:
		result.Status = "error"
		result.Message = "Encoder returned an empty embedding"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Encoder returned %d-dimensional vectors", len(vectors[0]))
	}

	return result
}

// CheckAll runs the checks relevant to the configured provider
func CheckAll(ctx context.Context, cfg *config.LLMConfig, enc similarity.Encoder) []CheckResult {
	var results []CheckResult
	if cfg.Provider == "" || cfg.Provider == "ollama" {
		results = append(results, CheckOllama(ctx, cfg.OllamaBaseURL))
	}
	if enc != nil {
		results = append(results, CheckEncoder(ctx, enc))
	}
	return results
}

// Healthy reports whether every check passed
func Healthy(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != "ok" {
			return false
		}
	}
	return true
}

// FormatResults formats health check results for display
func FormatResults(results []CheckResult) string {
	output := "\n=== Dependency Health Check ===\n\n"

	for _, result := range results {
		var status string
		switch result.Status {
		case "ok":
			status = "✓"
		case "error":
			status = "✗"
		default:
			status = "?"
		}

		output += fmt.Sprintf("%s %s: %s\n", status, result.Service, result.Message)
	}

	return output
}

// GetRemediation provides remediation steps for failed checks
func GetRemediation(results []CheckResult) string {
	var remediation string

	for _, result := range results {
		if result.Status != "ok" {
			remediation += fmt.Sprintf("\n%s is not accessible:\n", result.Service)

			switch result.Service {
			case "Ollama":
				remediation += `
  Install Ollama:
    curl -fsSL https://ollama.ai/install.sh | sh

  Start Ollama (it usually starts automatically):
    ollama serve

  Pull the embedding model:
    ollama pull nomic-embed-text
`
			case "Encoder":
				remediation += `
  Check the llm section of your config (provider, model, API key).

  For a smoke run without a model server, LLM_PROVIDER=hashing works
  offline. It only captures token overlap, not meaning: renamed but
  equivalent code scores far lower than with a real embedding model,
  so do not use it for actual similarity results.
`
			}
		}
	}

	return remediation
}
