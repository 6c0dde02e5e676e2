package database

import (
	"database/sql"
	"fmt"
	"time"
)

type Shipment struct {
	ID               int        `json:"id"`
	OriginLabel      string     `json:"origin_label"`
	DestinationLabel string     `json:"destination_label"`
	InternalNumber   string     `json:"internal_number"`
	DisplayNumber    string     `json:"display_number"`
	CdekNumber       *string    `json:"cdek_number,omitempty"`
	CdekUUID         *string    `json:"cdek_uuid,omitempty"`
	CdekState        string     `json:"cdek_state"`
	LastStatus       *string    `json:"last_status,omitempty"`
	LastLocation     *string    `json:"last_location,omitempty"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TrackingIdentifier returns the identifier used for carrier lookups: the
// carrier-assigned number when present, else the display number.
func (s *Shipment) TrackingIdentifier() string {
	if s.CdekNumber != nil && *s.CdekNumber != "" {
		return *s.CdekNumber
	}
	return s.DisplayNumber
}

type Location struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type Record struct {
	ID          int       `json:"id"`
	LocationID  int       `json:"location_id"`
	Product     string    `json:"product"`
	Stock       *int      `json:"stock,omitempty"`
	SalesQty    *int      `json:"sales_qty,omitempty"`
	SalesAmount *float64  `json:"sales_amount,omitempty"`
	RecordDate  string    `json:"record_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShipmentStore handles database operations for shipments
type ShipmentStore struct {
	db *sql.DB
}

func NewShipmentStore(db *sql.DB) *ShipmentStore {
	return &ShipmentStore{db: db}
}

const shipmentColumns = `id, origin_label, destination_label, internal_number,
		display_number, cdek_number, cdek_uuid, cdek_state,
		last_status, last_location, last_update, created_at`

func scanShipment(row interface{ Scan(...interface{}) error }) (*Shipment, error) {
	var s Shipment
	var display sql.NullString
	err := row.Scan(&s.ID, &s.OriginLabel, &s.DestinationLabel, &s.InternalNumber,
		&display, &s.CdekNumber, &s.CdekUUID, &s.CdekState,
		&s.LastStatus, &s.LastLocation, &s.LastUpdate, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.DisplayNumber = display.String
	return &s, nil
}

// GetAll returns all shipments, newest first
func (s *ShipmentStore) GetAll() ([]Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *shipment)
	}

	return shipments, rows.Err()
}

// GetByID returns a shipment by ID
func (s *ShipmentStore) GetByID(id int) (*Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ?`
	return scanShipment(s.db.QueryRow(query, id))
}

// GetActive returns shipments whose tracking state may still change.
func (s *ShipmentStore) GetActive() ([]Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments
		WHERE cdek_state NOT IN ('DELIVERED', 'CANCELLED', 'MANUAL')
		ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *shipment)
	}

	return shipments, rows.Err()
}

// Create creates a new shipment
func (s *ShipmentStore) Create(shipment *Shipment) error {
	if shipment.CdekState == "" {
		shipment.CdekState = "PENDING_REGISTRATION"
	}

	query := `INSERT INTO shipments (origin_label, destination_label, internal_number,
			display_number, cdek_number, cdek_uuid, cdek_state,
			last_status, last_location, last_update)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.Exec(query, shipment.OriginLabel, shipment.DestinationLabel,
		shipment.InternalNumber, shipment.DisplayNumber, shipment.CdekNumber,
		shipment.CdekUUID, shipment.CdekState, shipment.LastStatus,
		shipment.LastLocation, shipment.LastUpdate)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	shipment.ID = int(id)

	created, err := s.GetByID(shipment.ID)
	if err != nil {
		return err
	}
	shipment.CreatedAt = created.CreatedAt

	return nil
}

// UpdateTracking writes back the result of a status resolution: the resolved
// carrier UUID, the new state, and the last known status snapshot.
func (s *ShipmentStore) UpdateTracking(id int, uuid *string, state string, status, location *string, updatedAt *time.Time) error {
	query := `UPDATE shipments SET cdek_uuid = COALESCE(?, cdek_uuid), cdek_state = ?,
			last_status = ?, last_location = ?, last_update = ?
			WHERE id = ?`

	result, err := s.db.Exec(query, uuid, state, status, location, updatedAt, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "shipment", id)
}

// SetState changes only the lifecycle state, used for manual overrides.
func (s *ShipmentStore) SetState(id int, state string) error {
	result, err := s.db.Exec("UPDATE shipments SET cdek_state = ? WHERE id = ?", state, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "shipment", id)
}

// Delete removes a shipment
func (s *ShipmentStore) Delete(id int) error {
	result, err := s.db.Exec("DELETE FROM shipments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "shipment", id)
}

func requireRowAffected(result sql.Result, kind string, id int) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %d", kind, id)
	}
	return nil
}

// LocationStore handles database operations for locations
type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

func (s *LocationStore) GetAll() ([]Location, error) {
	rows, err := s.db.Query("SELECT id, name, address, created_at FROM locations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		var address sql.NullString
		if err := rows.Scan(&loc.ID, &loc.Name, &address, &loc.CreatedAt); err != nil {
			return nil, err
		}
		loc.Address = address.String
		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

func (s *LocationStore) GetByID(id int) (*Location, error) {
	var loc Location
	var address sql.NullString
	err := s.db.QueryRow("SELECT id, name, address, created_at FROM locations WHERE id = ?", id).
		Scan(&loc.ID, &loc.Name, &address, &loc.CreatedAt)
	if err != nil {
		return nil, err
	}
	loc.Address = address.String
	return &loc, nil
}

func (s *LocationStore) Create(loc *Location) error {
	result, err := s.db.Exec("INSERT INTO locations (name, address) VALUES (?, ?)", loc.Name, loc.Address)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	loc.ID = int(id)

	created, err := s.GetByID(loc.ID)
	if err != nil {
		return err
	}
	loc.CreatedAt = created.CreatedAt
	return nil
}

func (s *LocationStore) Delete(id int) error {
	result, err := s.db.Exec("DELETE FROM locations WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "location", id)
}

// RecordStore handles database operations for inventory/sales records
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// GetByLocation returns records for one location, newest record date first.
func (s *RecordStore) GetByLocation(locationID int) ([]Record, error) {
	query := `SELECT id, location_id, product, stock, sales_qty, sales_amount,
			record_date, created_at
			FROM records WHERE location_id = ? ORDER BY record_date DESC, id DESC`

	rows, err := s.db.Query(query, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var date sql.NullString
		if err := rows.Scan(&r.ID, &r.LocationID, &r.Product, &r.Stock,
			&r.SalesQty, &r.SalesAmount, &date, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RecordDate = date.String
		records = append(records, r)
	}

	return records, rows.Err()
}

func (s *RecordStore) Create(r *Record) error {
	query := `INSERT INTO records (location_id, product, stock, sales_qty, sales_amount, record_date)
			VALUES (?, ?, ?, ?, ?, ?)`

	result, err := s.db.Exec(query, r.LocationID, r.Product, r.Stock, r.SalesQty, r.SalesAmount, r.RecordDate)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = int(id)
	return nil
}
