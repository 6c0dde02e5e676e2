package handlers

import (
	"encoding/json"
	"net/http"

	"crm-portal/internal/services"
)

// TrackHandler serves the public track-by-number endpoint
type TrackHandler struct {
	resolver *services.Resolver
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(resolver *services.Resolver) *TrackHandler {
	return &TrackHandler{resolver: resolver}
}

// Track handles GET /api/track?number=<id>. Unlike the shipment refresh
// flow it has no persistence side effects; the caller just gets the record.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")

	record, err := h.resolver.Resolve(r.Context(), number, "")
	if err != nil {
		WriteTrackingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(record)
}
