package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crm-portal/internal/tracking"
)

// TrackCacheEntry represents a persisted tracking cache row
type TrackCacheEntry struct {
	TrackNumber string    `json:"track_number"`
	RecordData  string    `json:"record_data"`
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TrackCacheStore handles database operations for the tracking result cache
type TrackCacheStore struct {
	db *sql.DB
}

// NewTrackCacheStore creates a new tracking cache store
func NewTrackCacheStore(db *sql.DB) *TrackCacheStore {
	return &TrackCacheStore{db: db}
}

// Get retrieves a cached status record for a tracking number. Expired rows
// are deleted on read and reported as a miss.
func (t *TrackCacheStore) Get(trackNumber string) (*tracking.StatusRecord, error) {
	query := `SELECT record_data, expires_at FROM track_cache WHERE track_number = ?`

	var recordData string
	var expiresAt time.Time

	err := t.db.QueryRow(query, trackNumber).Scan(&recordData, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached record: %w", err)
	}

	if time.Now().After(expiresAt) {
		t.Delete(trackNumber)
		return nil, nil
	}

	var record tracking.StatusRecord
	if err := json.Unmarshal([]byte(recordData), &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize cached record: %w", err)
	}

	return &record, nil
}

// Set stores a status record in the cache with the specified TTL
func (t *TrackCacheStore) Set(trackNumber string, record *tracking.StatusRecord, ttl time.Duration) error {
	recordData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	expiresAt := time.Now().Add(ttl)

	query := `INSERT OR REPLACE INTO track_cache (track_number, record_data, cached_at, expires_at)
			  VALUES (?, ?, CURRENT_TIMESTAMP, ?)`

	if _, err := t.db.Exec(query, trackNumber, string(recordData), expiresAt); err != nil {
		return fmt.Errorf("failed to cache record: %w", err)
	}

	return nil
}

// Delete removes a cached entry for a tracking number
func (t *TrackCacheStore) Delete(trackNumber string) error {
	if _, err := t.db.Exec("DELETE FROM track_cache WHERE track_number = ?", trackNumber); err != nil {
		return fmt.Errorf("failed to delete cached entry: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired cache entries
func (t *TrackCacheStore) DeleteExpired() error {
	result, err := t.db.Exec("DELETE FROM track_cache WHERE expires_at <= ?", time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired entries: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		log.Printf("DEBUG: Cleaned up %d expired tracking cache entries", rows)
	}

	return nil
}

// LoadAll loads all non-expired cache entries from the database.
// Used for initializing the in-memory cache on startup.
func (t *TrackCacheStore) LoadAll() (map[string]*tracking.StatusRecord, error) {
	query := `SELECT track_number, record_data FROM track_cache WHERE expires_at > ?`

	rows, err := t.db.Query(query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entries: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]*tracking.StatusRecord)

	for rows.Next() {
		var trackNumber, recordData string
		if err := rows.Scan(&trackNumber, &recordData); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}

		var record tracking.StatusRecord
		if err := json.Unmarshal([]byte(recordData), &record); err != nil {
			log.Printf("WARN: Failed to deserialize cached record for %s: %v", trackNumber, err)
			continue
		}

		cache[trackNumber] = &record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache entries: %w", err)
	}

	return cache, nil
}

// GetStats returns total and expired cache row counts
func (t *TrackCacheStore) GetStats() (int, int, error) {
	var total, expired int

	if err := t.db.QueryRow("SELECT COUNT(*) FROM track_cache").Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("failed to get total cache entries: %w", err)
	}

	if err := t.db.QueryRow("SELECT COUNT(*) FROM track_cache WHERE expires_at <= ?", time.Now()).Scan(&expired); err != nil {
		return 0, 0, fmt.Errorf("failed to get expired cache entries: %w", err)
	}

	return total, expired, nil
}
