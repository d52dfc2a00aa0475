package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/clinical-engine/")
	v.AddConfigPath("$HOME/.clinical-engine")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CLINICAL_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Fallback provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.enabled", true)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 16)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 1.0)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.max_tokens", 16)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 1.0)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 16)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 1.0)

	// Classifier defaults
	v.SetDefault("classifier.emergency_threshold", 7)
	v.SetDefault("classifier.clear_winner_min", 2)
	v.SetDefault("classifier.fingerprint_prefix_len", 100)
	v.SetDefault("classifier.fallback_max_chars", 300)
	v.SetDefault("classifier.fallback_timeout", "5s")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "300s")
	v.SetDefault("cache.max_entries", 500)
	v.SetDefault("cache.cleanup_frequency", "1m")
	v.SetDefault("cache.sqlite_path", "/data/classification_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/clinical_engine")

	// Embedding defaults
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.batch_size", 100)
	v.SetDefault("embedding.dimensions", 1536)

	// Vector store defaults
	v.SetDefault("vector.path", "/data/case_vectors.db")

	// Retrieval defaults
	v.SetDefault("retrieval.rrf_k", 60)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.external_timeout", "10s")

	// Corpus defaults
	v.SetDefault("corpus.seed_path", "")
	v.SetDefault("corpus.start_id", 1)

	// Lexicon defaults
	v.SetDefault("lexicon.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets a 64-bit integer value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
