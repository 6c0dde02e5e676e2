package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	Shipments  *ShipmentStore
	Locations  *LocationStore
	Records    *RecordStore
	TrackCache *TrackCacheStore
}

// Open opens a database connection and initializes stores
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory sqlite database exists per connection, so the pool must
	// be capped at one or each query could see a different empty schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	database := &DB{
		DB:         db,
		Shipments:  NewShipmentStore(db),
		Locations:  NewLocationStore(db),
		Records:    NewRecordStore(db),
		TrackCache: NewTrackCacheStore(db),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_id INTEGER NOT NULL,
		product TEXT NOT NULL,
		stock INTEGER,
		sales_qty INTEGER,
		sales_amount REAL,
		record_date TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS shipments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin_label TEXT NOT NULL,
		destination_label TEXT NOT NULL,
		internal_number TEXT NOT NULL,
		display_number TEXT,
		cdek_number TEXT,
		cdek_uuid TEXT,
		cdek_state TEXT NOT NULL DEFAULT 'PENDING_REGISTRATION',
		last_status TEXT,
		last_location TEXT,
		last_update DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS track_cache (
		track_number TEXT PRIMARY KEY,
		record_data TEXT NOT NULL,
		cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_location ON records(location_id);
	CREATE INDEX IF NOT EXISTS idx_shipments_cdek_number ON shipments(cdek_number);
	CREATE INDEX IF NOT EXISTS idx_shipments_state ON shipments(cdek_state);
	CREATE INDEX IF NOT EXISTS idx_track_cache_expires ON track_cache(expires_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return db.migrateShipmentFields()
}

// migrateShipmentFields upgrades databases created before carrier tracking
// was added, where shipments only carried an internal number.
func (db *DB) migrateShipmentFields() error {
	var columnExists int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('shipments')
		WHERE name = 'cdek_uuid'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check column existence: %w", err)
	}

	if columnExists == 0 {
		alterQueries := []string{
			"ALTER TABLE shipments ADD COLUMN cdek_uuid TEXT",
			"ALTER TABLE shipments ADD COLUMN cdek_state TEXT NOT NULL DEFAULT 'PENDING_REGISTRATION'",
			"ALTER TABLE shipments ADD COLUMN last_status TEXT",
			"ALTER TABLE shipments ADD COLUMN last_location TEXT",
			"ALTER TABLE shipments ADD COLUMN last_update DATETIME",
		}

		for _, query := range alterQueries {
			if _, err := db.Exec(query); err != nil {
				return fmt.Errorf("failed to execute migration query '%s': %w", query, err)
			}
		}
	}

	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *DB) IsHealthy() error {
	return db.Ping()
}
