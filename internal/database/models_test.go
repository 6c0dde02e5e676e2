package database

import (
	"database/sql"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestShipmentCreateAndGet(t *testing.T) {
	db := openTestDB(t)

	shipment := &Shipment{
		OriginLabel:      "Москва",
		DestinationLabel: "Казань",
		InternalNumber:   "INT-001",
		DisplayNumber:    "1234567890",
	}
	if err := db.Shipments.Create(shipment); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if shipment.ID == 0 {
		t.Fatal("Create did not assign an ID")
	}
	if shipment.CdekState != "PENDING_REGISTRATION" {
		t.Errorf("default state = %q", shipment.CdekState)
	}
	if shipment.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	got, err := db.Shipments.GetByID(shipment.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OriginLabel != "Москва" || got.InternalNumber != "INT-001" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CdekNumber != nil {
		t.Errorf("cdek number should be null, got %v", *got.CdekNumber)
	}
}

func TestShipmentTrackingIdentifier(t *testing.T) {
	s := &Shipment{DisplayNumber: "1234567890"}
	if got := s.TrackingIdentifier(); got != "1234567890" {
		t.Errorf("identifier = %q, want display number", got)
	}

	s.CdekNumber = strPtr("9876543210")
	if got := s.TrackingIdentifier(); got != "9876543210" {
		t.Errorf("identifier = %q, carrier number should win", got)
	}

	empty := &Shipment{}
	if got := empty.TrackingIdentifier(); got != "" {
		t.Errorf("identifier = %q, want empty", got)
	}
}

func TestShipmentUpdateTracking(t *testing.T) {
	db := openTestDB(t)

	shipment := &Shipment{
		OriginLabel:      "Москва",
		DestinationLabel: "Омск",
		InternalNumber:   "INT-002",
		DisplayNumber:    "1234567890",
	}
	if err := db.Shipments.Create(shipment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updatedAt := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	err := db.Shipments.UpdateTracking(shipment.ID, strPtr("uuid-1"), "IN_TRANSIT",
		strPtr("В пути"), strPtr("Тверь"), &updatedAt)
	if err != nil {
		t.Fatalf("UpdateTracking: %v", err)
	}

	got, _ := db.Shipments.GetByID(shipment.ID)
	if got.CdekState != "IN_TRANSIT" {
		t.Errorf("state = %q", got.CdekState)
	}
	if got.CdekUUID == nil || *got.CdekUUID != "uuid-1" {
		t.Errorf("uuid = %v", got.CdekUUID)
	}
	if got.LastStatus == nil || *got.LastStatus != "В пути" {
		t.Errorf("status = %v", got.LastStatus)
	}

	// A nil UUID must not clobber the stored one.
	err = db.Shipments.UpdateTracking(shipment.ID, nil, "IN_TRANSIT",
		strPtr("Прибыл"), strPtr("Омск"), &updatedAt)
	if err != nil {
		t.Fatalf("UpdateTracking without uuid: %v", err)
	}
	got, _ = db.Shipments.GetByID(shipment.ID)
	if got.CdekUUID == nil || *got.CdekUUID != "uuid-1" {
		t.Errorf("uuid clobbered: %v", got.CdekUUID)
	}

	if err := db.Shipments.UpdateTracking(9999, nil, "IN_TRANSIT", nil, nil, nil); err == nil {
		t.Error("UpdateTracking on missing shipment should fail")
	}
}

func TestShipmentGetActive(t *testing.T) {
	db := openTestDB(t)

	states := []string{"PENDING_REGISTRATION", "REGISTERED", "IN_TRANSIT", "DELIVERED", "CANCELLED", "MANUAL"}
	for i, state := range states {
		s := &Shipment{
			OriginLabel:      "A",
			DestinationLabel: "B",
			InternalNumber:   "INT-" + state,
			DisplayNumber:    "100000000" + string(rune('0'+i)),
			CdekState:        state,
		}
		if err := db.Shipments.Create(s); err != nil {
			t.Fatalf("Create %s: %v", state, err)
		}
	}

	active, err := db.Shipments.GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active = %d, want 3 (pending, registered, in transit)", len(active))
	}
	for _, s := range active {
		switch s.CdekState {
		case "DELIVERED", "CANCELLED", "MANUAL":
			t.Errorf("terminal state %s returned as active", s.CdekState)
		}
	}
}

func TestShipmentSetStateAndDelete(t *testing.T) {
	db := openTestDB(t)

	shipment := &Shipment{
		OriginLabel:      "A",
		DestinationLabel: "B",
		InternalNumber:   "INT-003",
	}
	if err := db.Shipments.Create(shipment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := db.Shipments.SetState(shipment.ID, "MANUAL"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	got, _ := db.Shipments.GetByID(shipment.ID)
	if got.CdekState != "MANUAL" {
		t.Errorf("state = %q", got.CdekState)
	}

	if err := db.Shipments.Delete(shipment.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Shipments.GetByID(shipment.ID); err != sql.ErrNoRows {
		t.Errorf("GetByID after delete: %v", err)
	}
	if err := db.Shipments.Delete(shipment.ID); err == nil {
		t.Error("second delete should fail")
	}
}

func TestLocationAndRecordStores(t *testing.T) {
	db := openTestDB(t)

	loc := &Location{Name: "Точка на Арбате", Address: "Арбат, 1"}
	if err := db.Locations.Create(loc); err != nil {
		t.Fatalf("create location: %v", err)
	}
	if loc.ID == 0 {
		t.Fatal("location ID not assigned")
	}

	stock := 12
	rec := &Record{
		LocationID: loc.ID,
		Product:    "Чай",
		Stock:      &stock,
		RecordDate: "2024-06-01",
	}
	if err := db.Records.Create(rec); err != nil {
		t.Fatalf("create record: %v", err)
	}

	records, err := db.Records.GetByLocation(loc.ID)
	if err != nil {
		t.Fatalf("GetByLocation: %v", err)
	}
	if len(records) != 1 || records[0].Product != "Чай" {
		t.Errorf("records = %+v", records)
	}

	locations, err := db.Locations.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(locations) != 1 {
		t.Errorf("locations = %d, want 1", len(locations))
	}

	if err := db.Locations.Delete(loc.ID); err != nil {
		t.Fatalf("delete location: %v", err)
	}
}
