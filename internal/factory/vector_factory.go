package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matria/clinical-engine/internal/adapters/vector"
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// VectorFactory creates vector-similarity stores based on configuration
type VectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewVectorFactory creates a new vector store factory
func NewVectorFactory(cfg *config.Config, logger *zap.Logger) *VectorFactory {
	return &VectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVectorIndex creates the vector-similarity store
func (f *VectorFactory) CreateVectorIndex() (core.VectorIndex, error) {
	vectorCfg := f.cfg.GetVector()
	embeddingCfg := f.cfg.GetEmbedding()

	if err := os.MkdirAll(filepath.Dir(vectorCfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}

	return vector.NewSQLiteVecStore(vectorCfg.Path, embeddingCfg.Dimensions, f.logger)
}
