package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatalf("DefaultConfig() returned nil")
	}

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "ollama")
	}
	if cfg.LLM.OllamaBaseURL != "http://localhost:11434" {
		t.Errorf("LLM.OllamaBaseURL = %q, want %q", cfg.LLM.OllamaBaseURL, "http://localhost:11434")
	}
	if cfg.LLM.BatchSize != 32 {
		t.Errorf("LLM.BatchSize = %d, want %d", cfg.LLM.BatchSize, 32)
	}
	if cfg.Similarity.ModelNameThreshold != 80 {
		t.Errorf("Similarity.ModelNameThreshold = %v, want %v", cfg.Similarity.ModelNameThreshold, 80)
	}
	if cfg.Similarity.FunctionThreshold != 0 {
		t.Errorf("Similarity.FunctionThreshold = %v, want 0", cfg.Similarity.FunctionThreshold)
	}
	if cfg.Similarity.LexicalAlgorithm != LexicalIndel {
		t.Errorf("Similarity.LexicalAlgorithm = %q, want %q", cfg.Similarity.LexicalAlgorithm, LexicalIndel)
	}
	if cfg.Similarity.EncoderFailure != EncoderFailureNeutral {
		t.Errorf("Similarity.EncoderFailure = %q, want %q", cfg.Similarity.EncoderFailure, EncoderFailureNeutral)
	}
	if len(cfg.Similarity.Python.ModelBases) != 1 || cfg.Similarity.Python.ModelBases[0] != "models.Model" {
		t.Errorf("Python.ModelBases = %#v, want [models.Model]", cfg.Similarity.Python.ModelBases)
	}
	if got := cfg.Similarity.Exclude; len(got) != 2 || got[0] != "**/node_modules" || got[1] != "**/vendor" {
		t.Errorf("Similarity.Exclude = %#v, want [**/node_modules **/vendor]", got)
	}
	if err := validate(cfg); err != nil {
		t.Errorf("validate(DefaultConfig()) returned error: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()
	missing := filepath.Join(tempDir, "no-such-config.yaml")

	cfg, err := Load(missing)
	if err != nil {
		t.Fatalf("Load(%q) returned error: %v", missing, err)
	}
	if cfg == nil {
		t.Fatalf("Load(%q) returned nil config", missing)
	}

	if cfg.Similarity.ModelNameThreshold != 80 {
		t.Errorf("Similarity.ModelNameThreshold = %v, want %v", cfg.Similarity.ModelNameThreshold, 80)
	}
}

func TestLoadParsesYAMLAndValidates(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")

	yamlContent := []byte(`
llm:
  provider: hashing
  hashing_dimensions: 256
  timeout: 5s
similarity:
  languages: [python, php]
  model_name_threshold: 65
  lexical_algorithm: jaro-winkler
  python:
    model_bases: [db.Model, Base]
    relationship_types: [relationship]
`)
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) returned error: %v", path, err)
	}

	if cfg.LLM.Provider != "hashing" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "hashing")
	}
	if cfg.LLM.HashingDimensions != 256 {
		t.Errorf("LLM.HashingDimensions = %d, want %d", cfg.LLM.HashingDimensions, 256)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("LLM.Timeout = %v, want %v", cfg.LLM.Timeout, 5*time.Second)
	}
	if len(cfg.Similarity.Languages) != 2 {
		t.Errorf("Similarity.Languages = %#v, want [python php]", cfg.Similarity.Languages)
	}
	if cfg.Similarity.ModelNameThreshold != 65 {
		t.Errorf("Similarity.ModelNameThreshold = %v, want %v", cfg.Similarity.ModelNameThreshold, 65)
	}
	if got := cfg.Similarity.Python.ModelBases; len(got) != 2 || got[0] != "db.Model" || got[1] != "Base" {
		t.Errorf("Python.ModelBases = %#v, want [db.Model Base]", got)
	}
	// Untouched sections keep their defaults
	if len(cfg.Similarity.PHP.ModelBases) != 1 || cfg.Similarity.PHP.ModelBases[0] != "Model" {
		t.Errorf("PHP.ModelBases = %#v, want [Model]", cfg.Similarity.PHP.ModelBases)
	}
	if cfg.LLM.BatchSize != 32 {
		t.Errorf("LLM.BatchSize = %d, want %d", cfg.LLM.BatchSize, 32)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Load(invalid yaml) = nil error, want non-nil")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("LLM_BATCH_SIZE", "8")
	t.Setenv("SIMILARITY_LANGUAGES", "python, go ")
	t.Setenv("SIMILARITY_MODEL_NAME_THRESHOLD", "72.5")
	t.Setenv("SIMILARITY_ENCODER_FAILURE", "fail")
	t.Setenv("PYTHON_MODEL_BASES", "Base,db.Model")

	applyEnvOverrides(cfg)

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "gemini")
	}
	if cfg.LLM.GeminiAPIKey != "secret" {
		t.Errorf("LLM.GeminiAPIKey = %q, want %q", cfg.LLM.GeminiAPIKey, "secret")
	}
	if cfg.LLM.BatchSize != 8 {
		t.Errorf("LLM.BatchSize = %d, want %d", cfg.LLM.BatchSize, 8)
	}
	if len(cfg.Similarity.Languages) != 2 || cfg.Similarity.Languages[1] != "go" {
		t.Errorf("Similarity.Languages = %#v, want [python go]", cfg.Similarity.Languages)
	}
	if cfg.Similarity.ModelNameThreshold != 72.5 {
		t.Errorf("Similarity.ModelNameThreshold = %v, want %v", cfg.Similarity.ModelNameThreshold, 72.5)
	}
	if cfg.Similarity.EncoderFailure != EncoderFailureFail {
		t.Errorf("Similarity.EncoderFailure = %q, want %q", cfg.Similarity.EncoderFailure, EncoderFailureFail)
	}
	if got := cfg.Similarity.Python.ModelBases; len(got) != 2 || got[0] != "Base" {
		t.Errorf("Python.ModelBases = %#v, want [Base db.Model]", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "" // should default to ollama
	cfg.Similarity.LexicalAlgorithm = ""
	cfg.Similarity.EncoderFailure = ""

	if err := validate(cfg); err != nil {
		t.Fatalf("validate(default cfg) returned error: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("after validate, LLM.Provider = %q, want %q", cfg.LLM.Provider, "ollama")
	}
	if cfg.Similarity.LexicalAlgorithm != LexicalIndel {
		t.Errorf("after validate, LexicalAlgorithm = %q, want %q", cfg.Similarity.LexicalAlgorithm, LexicalIndel)
	}
	if cfg.Similarity.EncoderFailure != EncoderFailureNeutral {
		t.Errorf("after validate, EncoderFailure = %q, want %q", cfg.Similarity.EncoderFailure, EncoderFailureNeutral)
	}

	bad := map[string]func(*Config){
		"unknown provider":  func(c *Config) { c.LLM.Provider = "huggingface" },
		"missing embed":     func(c *Config) { c.LLM.OllamaEmbed = "" },
		"unknown language":  func(c *Config) { c.Similarity.Languages = []string{"cobol"} },
		"no languages":      func(c *Config) { c.Similarity.Languages = nil },
		"unknown algorithm": func(c *Config) { c.Similarity.LexicalAlgorithm = "soundex" },
		"bad policy":        func(c *Config) { c.Similarity.EncoderFailure = "ignore" },
		"threshold range":   func(c *Config) { c.Similarity.ModelNameThreshold = 120 },
		"zero dimensions": func(c *Config) {
			c.LLM.Provider = "hashing"
			c.LLM.HashingDimensions = 0
		},
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			if err := validate(c); err == nil {
				t.Fatalf("validate() = nil error, want non-nil")
			}
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	created, err := WriteDefault(path)
	if err != nil {
		t.Fatalf("WriteDefault returned error: %v", err)
	}
	if !created {
		t.Fatalf("WriteDefault did not report creating %s", path)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(written default) returned error: %v", err)
	}
	if cfg.Similarity.AnalysisTimeout != 10*time.Minute {
		t.Errorf("AnalysisTimeout = %v, want 10m", cfg.Similarity.AnalysisTimeout)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("LLM.Timeout = %v, want 60s", cfg.LLM.Timeout)
	}

	// An existing file is left alone
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = WriteDefault(path)
	if err != nil || created {
		t.Fatalf("WriteDefault over existing file = (%v, %v), want (false, nil)", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "logging:\n  level: debug\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatalf("Validate() = nil error for level %q", cfg.Logging.Level)
	}
}
