package config

import (
	"time"
)

// Config represents the global application configuration
type Config struct {
	// LLM configuration (embedding capability)
	LLM LLMConfig `yaml:"llm"`

	// Similarity engine configuration
	Similarity SimilarityConfig `yaml:"similarity"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig contains embedding provider settings
type LLMConfig struct {
	// Provider type: "ollama" (local Ollama), "gemini" (Gemini API), "hashing"
	// (offline token-overlap fallback, no semantic understanding)
	Provider string `yaml:"provider"`

	// Ollama settings
	OllamaBaseURL string `yaml:"ollama_base_url"` // Default: http://localhost:11434
	OllamaEmbed   string `yaml:"ollama_embed"`    // e.g., nomic-embed-text, unixcoder

	// Gemini settings (cloud API)
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiEmbedModel string `yaml:"gemini_embed_model"` // e.g., text-embedding-004

	// Hashing settings (no model server required)
	HashingDimensions int `yaml:"hashing_dimensions"`

	// Global settings (apply to all providers)
	BatchSize  int           `yaml:"batch_size"` // texts per encoder call
	Timeout    time.Duration `yaml:"timeout"`    // per encoder call
	MaxRetries int           `yaml:"max_retries"`
}

// SimilarityConfig contains the comparison engine settings
type SimilarityConfig struct {
	// Languages to extract: python, php, go
	Languages []string `yaml:"languages"`

	// Exclude are doublestar globs, relative to each repository root
	Exclude []string `yaml:"exclude"`

	// LexicalAlgorithm: "indel" (matching-subsequence ratio), "levenshtein", "jaro-winkler"
	LexicalAlgorithm string `yaml:"lexical_algorithm"`
	CaseInsensitive  bool   `yaml:"case_insensitive"`

	// FunctionThreshold drops function pairs scoring below it (0 keeps every pair)
	FunctionThreshold float64 `yaml:"function_threshold"`

	// ModelNameThreshold gates field comparison on the model name lexical score
	ModelNameThreshold float64 `yaml:"model_name_threshold"`

	// EncoderFailure: "neutral" substitutes NeutralScore and logs, "fail" aborts the run
	EncoderFailure string  `yaml:"encoder_failure"`
	NeutralScore   float64 `yaml:"neutral_score"`

	// EmbeddingCacheSize bounds the embedding cache an engine keeps across
	// analyses (0 disables it)
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`

	// AnalysisTimeout is the deadline for a whole analyze call (0 = none)
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	Python LanguageModelConfig `yaml:"python"`
	PHP    LanguageModelConfig `yaml:"php"`
	Go     LanguageModelConfig `yaml:"go"`
}

// LanguageModelConfig describes how data models are recognised in one language
type LanguageModelConfig struct {
	// ModelBases are base class (or embedded type) names marking a data model
	ModelBases []string `yaml:"model_bases"`

	// RelationshipTypes are field constructors (Python), relation methods (PHP)
	// or struct tag keys (Go) that denote relationship-style fields
	RelationshipTypes []string `yaml:"relationship_types"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text

	// File receives a copy of the log output when set
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"` // the file is trimmed once it grows past this
}
