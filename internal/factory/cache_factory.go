package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matria/clinical-engine/internal/adapters/cache"
	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates classification cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(cacheCfg.TTL, cacheCfg.MaxEntries, cacheCfg.CleanupFrequency, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, cacheCfg.TTL, cacheCfg.MaxEntries, cacheCfg.CleanupFrequency, f.logger)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, cacheCfg.TTL, cacheCfg.MaxEntries, cacheCfg.CleanupFrequency, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}
