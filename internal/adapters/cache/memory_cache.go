package cache

import (
	"context"
	"sync"
	"time"

	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory implementation of the CacheRepository interface.
// Entries expire lazily on Get after the TTL; when a Set pushes the entry
// count over the cap, expired entries are purged and, if that is not enough,
// least-recently-used entries are evicted until the cap holds.
type MemoryCache struct {
	entries     map[string]*core.CacheEntry
	mu          sync.RWMutex
	ttl         time.Duration
	maxEntries  int
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory cache and starts its background
// cleanup task
func NewMemoryCache(ttl time.Duration, maxEntries int, cleanupFreq time.Duration, logger *zap.Logger) *MemoryCache {
	c := &MemoryCache{
		entries:     make(map[string]*core.CacheEntry),
		ttl:         ttl,
		maxEntries:  maxEntries,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}

	return c
}

// Get retrieves a live entry for a fingerprint. An entry whose age has reached
// the TTL is removed as a side effect and reported as a miss.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (core.Category, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return "", false
	}

	if time.Since(entry.CreatedAt) >= c.ttl {
		delete(c.entries, fingerprint)
		return "", false
	}

	entry.LastAccess = time.Now()
	return entry.Category, true
}

// Set stores an entry, overwriting any previous one for the same fingerprint
// and resetting its age
func (c *MemoryCache) Set(ctx context.Context, fingerprint string, category core.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[fingerprint] = &core.CacheEntry{
		Fingerprint: fingerprint,
		Category:    category,
		CreatedAt:   now,
		LastAccess:  now,
	}

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictLocked()
	}
}

// Delete removes an entry
func (c *MemoryCache) Delete(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, fingerprint)
	return nil
}

// Purge removes all expired entries
func (c *MemoryCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := c.purgeExpiredLocked()
	c.logger.Debug("Purged expired cache entries", zap.Int("expired_count", expired))
	return nil
}

// Len returns the current entry count
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// evictLocked restores the size cap: first by purging expired entries, then by
// evicting least-recently-used entries until the cap holds
func (c *MemoryCache) evictLocked() {
	expired := c.purgeExpiredLocked()
	evicted := 0

	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldestAccess time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.LastAccess.Before(oldestAccess) {
				oldestKey = key
				oldestAccess = entry.LastAccess
			}
		}
		delete(c.entries, oldestKey)
		evicted++
	}

	if expired > 0 || evicted > 0 {
		c.logger.Debug("Cache over capacity",
			zap.Int("expired_count", expired),
			zap.Int("evicted_count", evicted),
			zap.Int("size", len(c.entries)))
	}
}

func (c *MemoryCache) purgeExpiredLocked() int {
	now := time.Now()
	count := 0
	for key, entry := range c.entries {
		if now.Sub(entry.CreatedAt) >= c.ttl {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

func (c *MemoryCache) startCleanupTask() {
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
