package config

import (
	"time"
)

// LLMConfig represents the configuration for the classification fallback provider
type LLMConfig struct {
	Provider string
	Enabled  bool
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ClassifierConfig represents the classifier thresholds and limits
type ClassifierConfig struct {
	EmergencyThreshold   int
	ClearWinnerMin       int
	FingerprintPrefixLen int
	FallbackMaxChars     int
	FallbackTimeout      time.Duration
}

// CacheConfig represents the classification cache configuration
type CacheConfig struct {
	Type             string
	TTL              time.Duration
	MaxEntries       int
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// EmbeddingConfig represents the embedding provider configuration
type EmbeddingConfig struct {
	Provider   string
	BatchSize  int
	Dimensions int
}

// VectorConfig represents the vector store configuration
type VectorConfig struct {
	Path string
}

// RetrievalConfig represents the retrieval engine configuration
type RetrievalConfig struct {
	RRFK            int
	TopK            int
	ExternalTimeout time.Duration
}

// CorpusConfig represents the case corpus configuration
type CorpusConfig struct {
	SeedPath string
	StartID  int64
}

// LexiconConfig represents the keyword lexicon configuration
type LexiconConfig struct {
	Path string
}

// GetLLM returns the fallback provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Enabled:  c.GetBool("llm.enabled"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		EmergencyThreshold:   c.GetInt("classifier.emergency_threshold"),
		ClearWinnerMin:       c.GetInt("classifier.clear_winner_min"),
		FingerprintPrefixLen: c.GetInt("classifier.fingerprint_prefix_len"),
		FallbackMaxChars:     c.GetInt("classifier.fallback_max_chars"),
		FallbackTimeout:      c.GetDuration("classifier.fallback_timeout"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		TTL:              c.GetDuration("cache.ttl"),
		MaxEntries:       c.GetInt("cache.max_entries"),
		CleanupFrequency: c.GetDuration("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}
}

// GetEmbedding returns the embedding provider configuration
func (c *Config) GetEmbedding() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:   c.GetString("embedding.provider"),
		BatchSize:  c.GetInt("embedding.batch_size"),
		Dimensions: c.GetInt("embedding.dimensions"),
	}
}

// GetVector returns the vector store configuration
func (c *Config) GetVector() VectorConfig {
	return VectorConfig{
		Path: c.GetString("vector.path"),
	}
}

// GetRetrieval returns the retrieval configuration
func (c *Config) GetRetrieval() RetrievalConfig {
	return RetrievalConfig{
		RRFK:            c.GetInt("retrieval.rrf_k"),
		TopK:            c.GetInt("retrieval.top_k"),
		ExternalTimeout: c.GetDuration("retrieval.external_timeout"),
	}
}

// GetCorpus returns the corpus configuration
func (c *Config) GetCorpus() CorpusConfig {
	return CorpusConfig{
		SeedPath: c.GetString("corpus.seed_path"),
		StartID:  c.GetInt64("corpus.start_id"),
	}
}

// GetLexicon returns the lexicon configuration
func (c *Config) GetLexicon() LexiconConfig {
	return LexiconConfig{
		Path: c.GetString("lexicon.path"),
	}
}
