// Package config loads engine configuration from config.yaml plus
// environment variables. Environment variables override YAML values; secrets
// (API keys, database passwords) come from the environment only.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine. It is constructed once at
// startup and injected into components; nothing reads it as global state.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Index    IndexConfig    `yaml:"index"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Executor ExecutorConfig `yaml:"executor"`

	// Databases lists the query targets. Each is a named relational database
	// the executor may run validated statements against.
	Databases []DatabaseTarget `yaml:"databases"`

	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // set at load time from build info
}

// ServerConfig holds the HTTP front-door settings.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// LLMConfig configures the reasoning and embedding backends.
type LLMConfig struct {
	// Provider selects the reasoning client: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // secret, env only

	// Embeddings always come from an OpenAI-compatible endpoint, even when
	// the reasoning provider is anthropic.
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"EMBEDDING_ENDPOINT" env-default:""`
	EmbeddingModel    string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingAPIKey   string `yaml:"-" env:"EMBEDDING_API_KEY"`

	// CreativeTemperature is used by the narrator; every other stage runs
	// deterministic at temperature 0.
	CreativeTemperature float64       `yaml:"creative_temperature" env:"LLM_CREATIVE_TEMPERATURE" env-default:"0.4"`
	CallTimeout         time.Duration `yaml:"call_timeout" env:"LLM_CALL_TIMEOUT" env-default:"30s"`
	MaxTokens           int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2000"`
}

// IndexConfig configures the persisted semantic index over table
// descriptions.
type IndexConfig struct {
	Path        string `yaml:"path" env:"INDEX_PATH" env-default:"data/schema-index"`
	Collection  string `yaml:"collection" env:"INDEX_COLLECTION" env-default:"tables"`
	CatalogPath string `yaml:"catalog_path" env:"CATALOG_PATH" env-default:"catalog/schema.yaml"`
	TopK        int    `yaml:"top_k" env:"INDEX_TOP_K" env-default:"5"`
}

// PipelineConfig holds the stage thresholds and bounds.
type PipelineConfig struct {
	// ClarificationThreshold forces ambiguous below this confidence.
	ClarificationThreshold float64 `yaml:"clarification_threshold" env:"CLARIFICATION_THRESHOLD" env-default:"0.7"`
	// RelevanceThreshold is the evaluator's essential/discarded cut line.
	RelevanceThreshold float64 `yaml:"relevance_threshold" env:"RELEVANCE_THRESHOLD" env-default:"0.5"`
	// MaxRepairAttempts bounds the validator's repair loop.
	MaxRepairAttempts int `yaml:"max_repair_attempts" env:"MAX_REPAIR_ATTEMPTS" env-default:"2"`
	// PreviewRows caps how many rows the narrator prompt embeds.
	PreviewRows int `yaml:"preview_rows" env:"PREVIEW_ROWS" env-default:"10"`
}

// ExecutorConfig holds the hard resource limits enforced at the database
// session level.
type ExecutorConfig struct {
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"STATEMENT_TIMEOUT" env-default:"30s"`
	MaxRows          int           `yaml:"max_rows" env:"MAX_ROWS" env-default:"10000"`
	PoolMaxConns     int32         `yaml:"pool_max_conns" env:"POOL_MAX_CONNS" env-default:"5"`
	PoolMinConns     int32         `yaml:"pool_min_conns" env:"POOL_MIN_CONNS" env-default:"1"`
}

// DatabaseTarget names one relational database the executor can query.
// Driver is "postgres" or "mssql". The DSN password placeholder ${DB_PASSWORD}
// is substituted from the environment at load time so config.yaml stays free
// of secrets.
type DatabaseTarget struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Load reads config.yaml (when present) and the environment.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
	}

	for i := range cfg.Databases {
		cfg.Databases[i].DSN = os.ExpandEnv(cfg.Databases[i].DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Pipeline.ClarificationThreshold < 0 || c.Pipeline.ClarificationThreshold > 1 {
		return fmt.Errorf("pipeline.clarification_threshold must be in [0,1]")
	}
	if c.Pipeline.RelevanceThreshold < 0 || c.Pipeline.RelevanceThreshold > 1 {
		return fmt.Errorf("pipeline.relevance_threshold must be in [0,1]")
	}
	if c.Pipeline.MaxRepairAttempts < 0 {
		return fmt.Errorf("pipeline.max_repair_attempts must be >= 0")
	}
	if c.Executor.MaxRows <= 0 {
		return fmt.Errorf("executor.max_rows must be positive")
	}
	if c.Executor.StatementTimeout <= 0 {
		return fmt.Errorf("executor.statement_timeout must be positive")
	}
	seen := make(map[string]bool, len(c.Databases))
	for _, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("database target missing name")
		}
		if seen[db.Name] {
			return fmt.Errorf("duplicate database target %q", db.Name)
		}
		seen[db.Name] = true
		if db.Driver != "postgres" && db.Driver != "mssql" {
			return fmt.Errorf("database %s: driver must be postgres or mssql, got %q", db.Name, db.Driver)
		}
		if db.DSN == "" {
			return fmt.Errorf("database %s: dsn is required", db.Name)
		}
	}
	return nil
}

// Target returns the named database target, if configured.
func (c *Config) Target(name string) (DatabaseTarget, bool) {
	for _, db := range c.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseTarget{}, false
}

// EmbeddingEndpointOrDefault falls back to the reasoning endpoint when no
// dedicated embedding endpoint is configured.
func (c *Config) EmbeddingEndpointOrDefault() string {
	if c.LLM.EmbeddingEndpoint != "" {
		return c.LLM.EmbeddingEndpoint
	}
	return c.LLM.Endpoint
}

// EmbeddingAPIKeyOrDefault falls back to the reasoning API key.
func (c *Config) EmbeddingAPIKeyOrDefault() string {
	if c.LLM.EmbeddingAPIKey != "" {
		return c.LLM.EmbeddingAPIKey
	}
	return c.LLM.APIKey
}
