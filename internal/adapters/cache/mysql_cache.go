package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface, for
// deployments that share one classification cache across several instances
type MySQLCache struct {
	db          *sql.DB
	ttl         time.Duration
	maxEntries  int
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, ttl time.Duration, maxEntries int, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classification_cache (
			fingerprint VARCHAR(64) PRIMARY KEY,
			category VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_access TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	c := &MySQLCache{
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
func (c *MySQLCache) Get(ctx context.Context, fingerprint string) (core.Category, bool) {
	var category string
	err := c.db.QueryRowContext(ctx, `
		SELECT category FROM classification_cache
		WHERE fingerprint = ? AND expires_at > ?
	`, fingerprint, time.Now()).Scan(&category)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query classification cache", zap.Error(err))
		}
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
func (c *MySQLCache) Set(ctx context.Context, fingerprint string, category core.Category) {
	now := time.Now()
	_, err := c.db.ExecContext(ctx, `
		REPLACE INTO classification_cache
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
func (c *MySQLCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache WHERE fingerprint = ?
	`, fingerprint)
	return err
}

// Purge removes all expired entries
func (c *MySQLCache) Purge(ctx context.Context) error {
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
func (c *MySQLCache) Close() error {
	c.Stop()
	return c.db.Close()
}

// Stop stops the background cleanup task
func (c *MySQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// enforceCap purges expired rows once the cap is exceeded, then evicts
// least-recently-used rows if the cache is still over capacity
func (c *MySQLCache) enforceCap(ctx context.Context) {
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

	if err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM classification_cache
	`).Scan(&count); err != nil {
		c.logger.Error("Failed to count cache entries", zap.Error(err))
		return
	}
	if count <= c.maxEntries {
		return
	}

	_, err := c.db.ExecContext(ctx, `
		DELETE FROM classification_cache
		ORDER BY last_access ASC
		LIMIT ?
	`, count-c.maxEntries)
	if err != nil {
		c.logger.Error("Failed to evict cache entries", zap.Error(err))
	}
}

func (c *MySQLCache) startCleanupTask() {
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
