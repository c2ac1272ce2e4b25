package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported lexical algorithms
const (
	LexicalIndel       = "indel"
	LexicalLevenshtein = "levenshtein"
	LexicalJaroWinkler = "jaro-winkler"
)

// LanguagesAuto enables every language detected in the compared trees
const LanguagesAuto = "auto"

// Encoder failure policies
const (
	EncoderFailureNeutral = "neutral"
	EncoderFailureFail    = "fail"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Start from defaults so partial files only override what they set
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "ollama",
			OllamaBaseURL:     "http://localhost:11434",
			OllamaEmbed:       "nomic-embed-text",
			GeminiEmbedModel:  "text-embedding-004",
			HashingDimensions: 512,
			BatchSize:         32,
			Timeout:           60 * time.Second,
			MaxRetries:        3,
		},
		Similarity: SimilarityConfig{
			Languages:          []string{"python"},
			Exclude:            []string{"**/node_modules", "**/vendor"},
			LexicalAlgorithm:   LexicalIndel,
			CaseInsensitive:    false,
			FunctionThreshold:  0,
			ModelNameThreshold: 80,
			EncoderFailure:     EncoderFailureNeutral,
			NeutralScore:       0,
			EmbeddingCacheSize: 4096,
			AnalysisTimeout:    10 * time.Minute,
			Python: LanguageModelConfig{
				ModelBases:        []string{"models.Model"},
				RelationshipTypes: []string{"ForeignKey", "OneToOneField", "ManyToManyField"},
			},
			PHP: LanguageModelConfig{
				ModelBases: []string{"Model"},
				RelationshipTypes: []string{
					"hasOne", "hasMany", "belongsTo", "belongsToMany",
					"hasOneThrough", "hasManyThrough",
					"morphTo", "morphOne", "morphMany", "morphToMany", "morphedByMany",
				},
			},
			Go: LanguageModelConfig{
				ModelBases:        []string{"gorm.Model"},
				RelationshipTypes: []string{"foreignKey", "references", "many2many", "polymorphic"},
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// LLM configuration overrides
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.LLM.Provider = provider
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		cfg.LLM.OllamaBaseURL = baseURL
	}
	if embed := os.Getenv("OLLAMA_EMBED"); embed != "" {
		cfg.LLM.OllamaEmbed = embed
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.LLM.GeminiAPIKey = apiKey
	}
	if model := os.Getenv("GEMINI_EMBED_MODEL"); model != "" {
		cfg.LLM.GeminiEmbedModel = model
	}
	if batch := os.Getenv("LLM_BATCH_SIZE"); batch != "" {
		if v, err := strconv.Atoi(batch); err == nil {
			cfg.LLM.BatchSize = v
		}
	}

	// Similarity configuration overrides
	if langs := os.Getenv("SIMILARITY_LANGUAGES"); langs != "" {
		cfg.Similarity.Languages = splitCSV(langs)
	}
	if algo := os.Getenv("SIMILARITY_LEXICAL_ALGORITHM"); algo != "" {
		cfg.Similarity.LexicalAlgorithm = algo
	}
	if v := os.Getenv("SIMILARITY_FUNCTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Similarity.FunctionThreshold = f
		}
	}
	if v := os.Getenv("SIMILARITY_MODEL_NAME_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Similarity.ModelNameThreshold = f
		}
	}
	if policy := os.Getenv("SIMILARITY_ENCODER_FAILURE"); policy != "" {
		cfg.Similarity.EncoderFailure = policy
	}
	if bases := os.Getenv("PYTHON_MODEL_BASES"); bases != "" {
		cfg.Similarity.Python.ModelBases = splitCSV(bases)
	}

	// Logging overrides
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks a configuration assembled outside Load, e.g. after
// command-line overrides, and fills defaulted fields.
func Validate(cfg *Config) error {
	return validate(cfg)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	// Default to ollama if provider is not set
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}

	switch cfg.LLM.Provider {
	case "ollama":
		if cfg.LLM.OllamaEmbed == "" {
			return fmt.Errorf("llm.ollama_embed is required for ollama provider")
		}
	case "gemini":
		if cfg.LLM.GeminiEmbedModel == "" {
			return fmt.Errorf("llm.gemini_embed_model is required for gemini provider")
		}
	case "hashing":
		if cfg.LLM.HashingDimensions <= 0 {
			return fmt.Errorf("llm.hashing_dimensions must be positive")
		}
	default:
		return fmt.Errorf("llm.provider must be one of 'ollama', 'gemini', 'hashing'")
	}

	if cfg.LLM.BatchSize <= 0 {
		cfg.LLM.BatchSize = 32
	}

	s := &cfg.Similarity
	if len(s.Languages) == 0 {
		return fmt.Errorf("similarity.languages must list at least one language")
	}
	for _, lang := range s.Languages {
		switch lang {
		case "python", "php", "go", LanguagesAuto:
		default:
			return fmt.Errorf("similarity.languages: unsupported language %q", lang)
		}
	}

	switch s.LexicalAlgorithm {
	case "":
		s.LexicalAlgorithm = LexicalIndel
	case LexicalIndel, LexicalLevenshtein, LexicalJaroWinkler:
	default:
		return fmt.Errorf("similarity.lexical_algorithm %q is not supported", s.LexicalAlgorithm)
	}

	switch s.EncoderFailure {
	case "":
		s.EncoderFailure = EncoderFailureNeutral
	case EncoderFailureNeutral, EncoderFailureFail:
	default:
		return fmt.Errorf("similarity.encoder_failure must be 'neutral' or 'fail'")
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	for name, v := range map[string]float64{
		"function_threshold":   s.FunctionThreshold,
		"model_name_threshold": s.ModelNameThreshold,
		"neutral_score":        s.NeutralScore,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("similarity.%s must be within [0, 100], got %v", name, v)
		}
	}

	return nil
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return false, fmt.Errorf("failed to render default config: %w", err)
	}

	header := "# repo-similarity configuration\n# Environment variables override these values, command-line flags override both.\n\n"
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
