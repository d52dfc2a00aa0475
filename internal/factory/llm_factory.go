package factory

import (
	"fmt"

	"github.com/matria/clinical-engine/internal/adapters/bedrock"
	"github.com/matria/clinical-engine/internal/adapters/gemini"
	"github.com/matria/clinical-engine/internal/adapters/openai"
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates fallback classification clients and embedding providers
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFallbackClient creates a classification fallback client based on the
// configuration. Returns nil when the fallback is disabled; the classifier
// then resolves ambiguous messages straight to the taxonomy default.
func (f *LLMFactory) CreateFallbackClient() (core.FallbackClient, error) {
	llmCfg := f.cfg.GetLLM()
	if !llmCfg.Enabled {
		f.logger.Info("Classification fallback disabled")
		return nil, nil
	}

	switch llmCfg.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateFallbackClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateFallbackClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateFallbackClient()
	default:
		return nil, fmt.Errorf("unsupported fallback provider: %s", llmCfg.Provider)
	}
}

// CreateEmbeddingProvider creates an embedding provider based on the
// configuration
func (f *LLMFactory) CreateEmbeddingProvider() (core.EmbeddingProvider, error) {
	embeddingCfg := f.cfg.GetEmbedding()

	switch embeddingCfg.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateEmbeddingProvider()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateEmbeddingProvider()
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", embeddingCfg.Provider)
	}
}
