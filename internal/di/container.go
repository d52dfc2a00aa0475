package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/matria/clinical-engine/internal/adapters/sparse"
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"github.com/matria/clinical-engine/internal/corpus"
	"github.com/matria/clinical-engine/internal/factory"
	"github.com/matria/clinical-engine/internal/lexicon"
	"github.com/matria/clinical-engine/internal/logging"
	"github.com/matria/clinical-engine/internal/ports"
	"github.com/matria/clinical-engine/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewVectorFactory); err != nil {
		return nil, err
	}

	// Register lexicon and term matcher
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.Lexicon, error) {
		store, err := lexicon.Load(cfg.GetLexicon().Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func() core.TermMatcher {
		return lexicon.NewSubstringMatcher()
	}); err != nil {
		return nil, err
	}

	// Register classification cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register fallback client and embedding provider
	if err := container.Provide(func(f *factory.LLMFactory) (core.FallbackClient, error) {
		return f.CreateFallbackClient()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (core.EmbeddingProvider, error) {
		return f.CreateEmbeddingProvider()
	}); err != nil {
		return nil, err
	}

	// Register vector store
	if err := container.Provide(func(f *factory.VectorFactory) (core.VectorIndex, error) {
		return f.CreateVectorIndex()
	}); err != nil {
		return nil, err
	}

	// Register corpus store and sparse index
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.CorpusStore {
		return corpus.NewStore(cfg.GetCorpus().StartID, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(logger *zap.Logger) core.SparseIndex {
		return sparse.NewIndex(logger)
	}); err != nil {
		return nil, err
	}

	// Register service parameters
	if err := container.Provide(func(cfg *config.Config) core.ClassifierParams {
		classifierCfg := cfg.GetClassifier()
		return core.ClassifierParams{
			EmergencyThreshold:   classifierCfg.EmergencyThreshold,
			ClearWinnerMin:       classifierCfg.ClearWinnerMin,
			FingerprintPrefixLen: classifierCfg.FingerprintPrefixLen,
			FallbackMaxChars:     classifierCfg.FallbackMaxChars,
			FallbackTimeout:      classifierCfg.FallbackTimeout,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) core.RetrievalParams {
		retrievalCfg := cfg.GetRetrieval()
		return core.RetrievalParams{
			RRFK:            retrievalCfg.RRFK,
			ExternalTimeout: retrievalCfg.ExternalTimeout,
		}
	}); err != nil {
		return nil, err
	}

	// Register services and the engine facade
	if err := container.Provide(core.NewClassifierService); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewRetrievalService); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewEngine); err != nil {
		return nil, err
	}
	if err := container.Provide(func(e *core.Engine) ports.Engine {
		return e
	}); err != nil {
		return nil, err
	}

	return container, nil
}
