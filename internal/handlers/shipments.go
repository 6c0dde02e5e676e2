package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"crm-portal/internal/database"
	"crm-portal/internal/services"
	"crm-portal/internal/tracking"

	"github.com/go-chi/chi/v5"
)

// ShipmentHandler handles HTTP requests for shipments
type ShipmentHandler struct {
	db       *database.DB
	resolver *services.Resolver
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(db *database.DB, resolver *services.Resolver) *ShipmentHandler {
	return &ShipmentHandler{db: db, resolver: resolver}
}

// GetShipments handles GET /api/shipments
func (h *ShipmentHandler) GetShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.db.Shipments.GetAll()
	if err != nil {
		log.Printf("ERROR: Failed to get shipments: %v", err)
		http.Error(w, fmt.Sprintf("Failed to get shipments: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(shipments)
}

// CreateShipment handles POST /api/shipments
func (h *ShipmentHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var shipment database.Shipment
	if err := json.NewDecoder(r.Body).Decode(&shipment); err != nil {
		log.Printf("ERROR: Invalid JSON in CreateShipment: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := validateShipment(&shipment); err != nil {
		log.Printf("ERROR: Validation failed for shipment: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if shipment.CdekState == "" {
		shipment.CdekState = string(tracking.StatePendingRegistration)
	}

	if err := h.db.Shipments.Create(&shipment); err != nil {
		log.Printf("ERROR: Failed to create shipment: %v", err)
		http.Error(w, fmt.Sprintf("Failed to create shipment: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(shipment)
}

// GetShipmentByID handles GET /api/shipments/{id}
func (h *ShipmentHandler) GetShipmentByID(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		http.Error(w, "Invalid shipment ID", http.StatusBadRequest)
		return
	}

	shipment, err := h.db.Shipments.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Shipment not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to get shipment %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to get shipment: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(shipment)
}

// DeleteShipment handles DELETE /api/shipments/{id}
func (h *ShipmentHandler) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		http.Error(w, "Invalid shipment ID", http.StatusBadRequest)
		return
	}

	if err := h.db.Shipments.Delete(id); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Shipment not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to delete shipment: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetShipmentState handles PUT /api/shipments/{id}/state, the manual
// lifecycle override. MANUAL is sticky: automatic refreshes never move a
// shipment out of it.
func (h *ShipmentHandler) SetShipmentState(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		http.Error(w, "Invalid shipment ID", http.StatusBadRequest)
		return
	}

	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !tracking.ShipmentState(body.State).Valid() {
		http.Error(w, "Invalid shipment state: "+body.State, http.StatusBadRequest)
		return
	}

	if err := h.db.Shipments.SetState(id, body.State); err != nil {
		http.Error(w, fmt.Sprintf("Failed to set shipment state: %v", err), http.StatusNotFound)
		return
	}

	shipment, err := h.db.Shipments.GetByID(id)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get shipment: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(shipment)
}

// RefreshResponse represents the response to a shipment refresh request
type RefreshResponse struct {
	ShipmentID int                    `json:"shipment_id"`
	State      string                 `json:"state"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Record     *tracking.StatusRecord `json:"record"`
}

// RefreshShipment handles POST /api/shipments/{id}/refresh. It resolves the
// current carrier status and writes the outcome back to the shipment row.
func (h *ShipmentHandler) RefreshShipment(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		http.Error(w, "Invalid shipment ID", http.StatusBadRequest)
		return
	}

	shipment, err := h.db.Shipments.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Shipment not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get shipment: %v", err), http.StatusInternalServerError)
		return
	}

	identifier := shipment.TrackingIdentifier()
	if identifier == "" {
		http.Error(w, "Shipment has no tracking identifier", http.StatusConflict)
		return
	}

	cachedUUID := ""
	if shipment.CdekUUID != nil {
		cachedUUID = *shipment.CdekUUID
	}

	record, err := h.resolver.Resolve(r.Context(), identifier, cachedUUID)
	if err != nil {
		WriteTrackingError(w, err)
		return
	}

	state := tracking.StateAfterSuccess(tracking.ShipmentState(shipment.CdekState), record)

	var uuid *string
	if record.OrderUUID != "" {
		uuid = &record.OrderUUID
	}
	status := record.Status
	location := record.CurrentCity
	updatedAt := record.Timestamp()
	if err := h.db.Shipments.UpdateTracking(id, uuid, string(state), &status, &location, &updatedAt); err != nil {
		log.Printf("ERROR: Failed to persist tracking result for shipment %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to update shipment: %v", err), http.StatusInternalServerError)
		return
	}

	response := RefreshResponse{
		ShipmentID: id,
		State:      string(state),
		UpdatedAt:  updatedAt,
		Record:     record,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func shipmentID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// validateShipment validates shipment data
func validateShipment(shipment *database.Shipment) error {
	if shipment.OriginLabel == "" {
		return fmt.Errorf("origin label is required")
	}
	if shipment.DestinationLabel == "" {
		return fmt.Errorf("destination label is required")
	}
	if shipment.InternalNumber == "" {
		return fmt.Errorf("internal number is required")
	}
	if shipment.CdekState != "" && !tracking.ShipmentState(shipment.CdekState).Valid() {
		return fmt.Errorf("invalid shipment state: %s", shipment.CdekState)
	}
	return nil
}
