package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"crm-portal/internal/database"

	"github.com/go-chi/chi/v5"
)

// LocationHandler handles HTTP requests for locations and their records
type LocationHandler struct {
	db *database.DB
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(db *database.DB) *LocationHandler {
	return &LocationHandler{db: db}
}

// GetLocations handles GET /api/locations
func (h *LocationHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.db.Locations.GetAll()
	if err != nil {
		log.Printf("ERROR: Failed to get locations: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get locations: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(locations)
}

// CreateLocation handles POST /api/locations
func (h *LocationHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var location database.Location
	if err := json.NewDecoder(r.Body).Decode(&location); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if location.Name == "" {
		http.Error(w, "Location name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.Locations.Create(&location); err != nil {
		log.Printf("ERROR: Failed to create location: %v", err)
		http.Error(w, fmt.Sprintf("Failed to create location: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(location)
}

// DeleteLocation handles DELETE /api/locations/{id}
func (h *LocationHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid location ID", http.StatusBadRequest)
		return
	}

	if err := h.db.Locations.Delete(id); err != nil {
		http.Error(w, fmt.Sprintf("Failed to delete location: %v", err), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLocationRecords handles GET /api/locations/{id}/records
func (h *LocationHandler) GetLocationRecords(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid location ID", http.StatusBadRequest)
		return
	}

	if _, err := h.db.Locations.GetByID(id); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Location not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get location: %v", err), http.StatusInternalServerError)
		return
	}

	records, err := h.db.Records.GetByLocation(id)
	if err != nil {
		log.Printf("ERROR: Failed to get records for location %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to get records: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(records)
}

// CreateLocationRecord handles POST /api/locations/{id}/records
func (h *LocationHandler) CreateLocationRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid location ID", http.StatusBadRequest)
		return
	}

	var record database.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if record.Product == "" {
		http.Error(w, "Product is required", http.StatusBadRequest)
		return
	}
	record.LocationID = id

	if _, err := h.db.Locations.GetByID(id); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Location not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get location: %v", err), http.StatusInternalServerError)
		return
	}

	if err := h.db.Records.Create(&record); err != nil {
		log.Printf("ERROR: Failed to create record: %v", err)
		http.Error(w, fmt.Sprintf("Failed to create record: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}
