package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crm-portal/internal/database"
	"crm-portal/internal/tracking"
)

// DefaultTTL is how long a resolved tracking record stays fresh.
const DefaultTTL = 8 * time.Minute

// CachedRecord is an in-memory cache slot with its own expiry.
type CachedRecord struct {
	Record    *tracking.StatusRecord
	ExpiresAt time.Time
}

// IsExpired checks if the cached record has expired
func (c *CachedRecord) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Manager layers an in-memory map over the persistent tracking cache so a
// server restart does not flush every known status. A hit before expiry
// short-circuits all upstream activity for that identifier.
type Manager struct {
	store    *database.TrackCacheStore
	memory   sync.Map // map[string]*CachedRecord
	disabled bool
	ttl      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a cache manager. A nil store disables the persistent
// layer; memory caching still applies.
func NewManager(store *database.TrackCacheStore, disabled bool, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ctx, cancel := context.WithCancel(context.Background())

	manager := &Manager{
		store:    store,
		disabled: disabled,
		ttl:      ttl,
		ctx:      ctx,
		cancel:   cancel,
	}

	if !disabled {
		if store != nil {
			if err := manager.loadFromDatabase(); err != nil {
				log.Printf("WARN: Failed to load tracking cache from database: %v", err)
			}
		}
		go manager.cleanupLoop()
	}

	return manager
}

// Get retrieves a cached status record for a tracking number. Returns nil
// on a miss.
func (m *Manager) Get(trackNumber string) (*tracking.StatusRecord, error) {
	if m.disabled {
		return nil, nil
	}

	if value, ok := m.memory.Load(trackNumber); ok {
		cached := value.(*CachedRecord)
		if !cached.IsExpired() {
			return cached.Record, nil
		}
		m.memory.Delete(trackNumber)
	}

	if m.store == nil {
		return nil, nil
	}

	record, err := m.store.Get(trackNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get from database cache: %w", err)
	}

	if record != nil {
		m.memory.Store(trackNumber, &CachedRecord{
			Record:    record,
			ExpiresAt: time.Now().Add(m.ttl),
		})
	}

	return record, nil
}

// Set stores a status record in both memory and the database
func (m *Manager) Set(trackNumber string, record *tracking.StatusRecord) error {
	if m.disabled {
		return nil
	}

	if m.store != nil {
		if err := m.store.Set(trackNumber, record, m.ttl); err != nil {
			return fmt.Errorf("failed to store in database cache: %w", err)
		}
	}

	m.memory.Store(trackNumber, &CachedRecord{
		Record:    record,
		ExpiresAt: time.Now().Add(m.ttl),
	})

	return nil
}

// Invalidate removes a cached record to force a fresh fetch
func (m *Manager) Invalidate(trackNumber string) error {
	if m.disabled {
		return nil
	}

	m.memory.Delete(trackNumber)

	if m.store != nil {
		if err := m.store.Delete(trackNumber); err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
	}

	return nil
}

// IsEnabled returns true if caching is enabled
func (m *Manager) IsEnabled() bool {
	return !m.disabled
}

// GetTTL returns the cache TTL duration
func (m *Manager) GetTTL() time.Duration {
	return m.ttl
}

// loadFromDatabase loads all non-expired cache entries into memory
func (m *Manager) loadFromDatabase() error {
	entries, err := m.store.LoadAll()
	if err != nil {
		return err
	}

	for trackNumber, record := range entries {
		m.memory.Store(trackNumber, &CachedRecord{
			Record:    record,
			ExpiresAt: time.Now().Add(m.ttl),
		})
	}

	if len(entries) > 0 {
		log.Printf("INFO: Loaded %d tracking cache entries from database", len(entries))
	}

	return nil
}

// cleanupLoop runs periodically to clean up expired entries
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes expired entries from both memory and database
func (m *Manager) cleanup() {
	count := 0
	m.memory.Range(func(key, value interface{}) bool {
		if value.(*CachedRecord).IsExpired() {
			m.memory.Delete(key)
			count++
		}
		return true
	})

	if m.store != nil {
		if err := m.store.DeleteExpired(); err != nil {
			log.Printf("WARN: Failed to clean up expired database cache entries: %v", err)
		}
	}

	if count > 0 {
		log.Printf("DEBUG: Cleaned up %d expired memory cache entries", count)
	}
}

// Stats reports cache usage counters.
type Stats struct {
	Disabled        bool          `json:"disabled"`
	TTL             time.Duration `json:"ttl"`
	MemoryTotal     int           `json:"memory_total"`
	MemoryExpired   int           `json:"memory_expired"`
	DatabaseTotal   int           `json:"database_total"`
	DatabaseExpired int           `json:"database_expired"`
}

// GetStats returns cache statistics
func (m *Manager) GetStats() (Stats, error) {
	stats := Stats{
		Disabled: m.disabled,
		TTL:      m.ttl,
	}

	if m.disabled {
		return stats, nil
	}

	m.memory.Range(func(key, value interface{}) bool {
		stats.MemoryTotal++
		if value.(*CachedRecord).IsExpired() {
			stats.MemoryExpired++
		}
		return true
	})

	if m.store != nil {
		dbTotal, dbExpired, err := m.store.GetStats()
		if err != nil {
			return stats, fmt.Errorf("failed to get database stats: %w", err)
		}
		stats.DatabaseTotal = dbTotal
		stats.DatabaseExpired = dbExpired
	}

	return stats, nil
}

// Close shuts down the cache manager and cleanup goroutine
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}
