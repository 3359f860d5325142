package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docqa.
type Config struct {
	Extract   ExtractConfig   `yaml:"extract"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Answer    AnswerConfig    `yaml:"answer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExtractConfig maps document name patterns to extractors.
type ExtractConfig struct {
	Rules []ExtractRule `yaml:"rules"`
}

type ExtractRule struct {
	Pattern   string `yaml:"pattern"`   // doublestar glob, e.g. "**/*.pdf"
	Extractor string `yaml:"extractor"` // "pdf" or "text"
}

// ChunkConfig holds text splitting configuration, in characters.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "hash"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURLEnv     string `yaml:"base_url_env"`
	Dimension      int    `yaml:"dimension"` // 0 = infer from the model
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
	CacheTTLMin    int    `yaml:"cache_ttl_minutes"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	PersistDir string `yaml:"persist_dir"`
	Engine     string `yaml:"engine"` // "flat"
	Metric     string `yaml:"metric"` // "cosine" or "l2"
}

type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// AnswerConfig holds answer generation configuration.
type AnswerConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	ContextBudget  int     `yaml:"context_budget"` // tokens, 0 = unlimited
	SystemPrompt   string  `yaml:"system_prompt"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Rules: []ExtractRule{
				{Pattern: "**/*.pdf", Extractor: "pdf"},
				{Pattern: "**/*.{txt,text,md,markdown,rst,csv}", Extractor: "text"},
			},
		},
		Chunk: ChunkConfig{
			Size:    800,
			Overlap: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			BaseURLEnv:     "OPENAI_BASE_URL",
			BatchSize:      100,
			TimeoutSeconds: 60,
			CacheSize:      256,
			CacheTTLMin:    30,
		},
		Index: IndexConfig{
			PersistDir: "docqa_store",
			Engine:     "flat",
			Metric:     "cosine",
		},
		Retrieve: RetrieveConfig{
			TopK: 3,
		},
		Answer: AnswerConfig{
			Model:          "gpt-5-mini",
			Temperature:    0.7,
			MaxTokens:      1000,
			ContextBudget:  0,
			TimeoutSeconds: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a build.
func (c *Config) Validate() error {
	if c.Chunk.Overlap <= 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk: need 0 < overlap < size, got size=%d overlap=%d", c.Chunk.Size, c.Chunk.Overlap)
	}

	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Embedding.Provider)
	}

	switch c.Index.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("index: unknown metric %q", c.Index.Metric)
	}
	if c.Index.PersistDir == "" {
		return fmt.Errorf("index: persist_dir is empty")
	}

	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve: top_k must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}

	return nil
}

// IndexDir resolves the persistence directory against dir.
func (c *Config) IndexDir(dir string) string {
	if filepath.IsAbs(c.Index.PersistDir) {
		return c.Index.PersistDir
	}
	return filepath.Join(dir, c.Index.PersistDir)
}

// APIKey reads the API key from the configured environment variable.
func (c *EmbeddingConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func (c *EmbeddingConfig) BaseURL() string {
	if c.BaseURLEnv == "" {
		return ""
	}
	return os.Getenv(c.BaseURLEnv)
}
