package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Gemini-backed clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini clients
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFallbackClient creates a new Gemini classification fallback client
func (f *Factory) CreateFallbackClient() (core.FallbackClient, error) {
	geminiCfg := f.cfg.GetGemini()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewFallbackClient(
		client,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger,
	), nil
}

// CreateEmbeddingProvider creates a new Gemini embedding provider
func (f *Factory) CreateEmbeddingProvider() (core.EmbeddingProvider, error) {
	geminiCfg := f.cfg.GetGemini()
	embeddingCfg := f.cfg.GetEmbedding()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewEmbeddingClient(
		client,
		geminiCfg.EmbeddingModel,
		embeddingCfg.Dimensions,
		embeddingCfg.BatchSize,
		f.logger,
	), nil
}
