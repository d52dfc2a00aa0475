package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface,
// for deployments that want classifications to survive restarts
type SQLiteCache struct {
	db          *sql.DB
	ttl         time.Duration
	maxEntries  int
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, ttl time.Duration, maxEntries int, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classification_cache (
			fingerprint TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_access TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_classification_cache_expires_at
		ON classification_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache index: %w", err)
	}

	c := &SQLiteCache{
		db:          db,
		ttl:         ttl,
		maxEntries:  maxEntries,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}

	return c, nil
}

// Get retrieves a live entry; expired rows are deleted as a side effect
func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (core.Category, bool) {
	var category string
	err := c.db.QueryRowContext(ctx, `
		SELECT category FROM classification_cache
		WHERE fingerprint = ? AND expires_at > ?
	`, fingerprint, time.Now()).Scan(&category)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query classification cache", zap.Error(err))
		}
		// lazy expiry: drop any stale row for this fingerprint
		if _, derr := c.db.ExecContext(ctx, `
			DELETE FROM classification_cache WHERE fingerprint = ? AND expires_at <= ?
		`, fingerprint, time.Now()); derr != nil {
			c.logger.Error("Failed to delete expired cache entry", zap.Error(derr))
		}
		return "", false
	}

	if _, err := c.db.ExecContext(ctx, `
		UPDATE classification_cache SET last_access = ? WHERE fingerprint = ?
	`, time.Now(), fingerprint); err != nil {
		c.logger.Error("Failed to touch cache entry", zap.Error(err))
	}

	return core.Category(category), true
}

// Set stores an entry, overwriting any previous one and resetting its age
func (c *SQLiteCache) Set(ctx context.Context, fingerprint string, category core.Category) {
	now := time.Now()
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO classification_cache
			(fingerprint, category, created_at, last_access, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, fingerprint, string(category), now, now, now.Add(c.ttl))
	if err != nil {
		c.logger.Error("Failed to store cache entry", zap.Error(err))
		return
	}

	c.enforceCap(ctx)
}

// Delete removes an entry
func (c *SQLiteCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache WHERE fingerprint = ?
	`, fingerprint)
	return err
}

// Purge removes all expired entries
func (c *SQLiteCache) Purge(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache WHERE expires_at <= ?
	`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to purge expired cache entries: %w", err)
	}

	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		c.logger.Debug("Purged expired cache entries", zap.Int64("expired_count", removed))
	}
	return nil
}

// Close closes the database and stops the cleanup task
func (c *SQLiteCache) Close() error {
	c.Stop()
	return c.db.Close()
}

// Stop stops the background cleanup task
func (c *SQLiteCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// enforceCap purges expired rows once the cap is exceeded, then evicts
// least-recently-used rows if the cache is still over capacity
func (c *SQLiteCache) enforceCap(ctx context.Context) {
	if c.maxEntries <= 0 {
		return
	}

	var count int
	if err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM classification_cache
	`).Scan(&count); err != nil {
		c.logger.Error("Failed to count cache entries", zap.Error(err))
		return
	}
	if count <= c.maxEntries {
		return
	}

	if err := c.Purge(ctx); err != nil {
		c.logger.Error("Failed to purge cache", zap.Error(err))
		return
	}

	_, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache WHERE fingerprint IN (
			SELECT fingerprint FROM classification_cache
			ORDER BY last_access ASC
			LIMIT MAX((SELECT COUNT(*) FROM classification_cache) - ?, 0)
		)
	`, c.maxEntries)
	if err != nil {
		c.logger.Error("Failed to evict cache entries", zap.Error(err))
	}
}

func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Purge(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}
