package openai

import (
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates OpenAI-backed clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI clients
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFallbackClient creates a new OpenAI classification fallback client
func (f *Factory) CreateFallbackClient() (core.FallbackClient, error) {
	openaiCfg := f.cfg.GetOpenAI()
	client := openai.NewClient(openaiCfg.APIKey)

	return NewFallbackClient(
		client,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		f.logger,
	), nil
}

// CreateEmbeddingProvider creates a new OpenAI embedding provider
func (f *Factory) CreateEmbeddingProvider() (core.EmbeddingProvider, error) {
	openaiCfg := f.cfg.GetOpenAI()
	embeddingCfg := f.cfg.GetEmbedding()
	client := openai.NewClient(openaiCfg.APIKey)

	return NewEmbeddingClient(
		client,
		openaiCfg.EmbeddingModel,
		embeddingCfg.Dimensions,
		embeddingCfg.BatchSize,
		f.logger,
	), nil
}
