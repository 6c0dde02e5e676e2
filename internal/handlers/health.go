package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"crm-portal/internal/cache"
	"crm-portal/internal/database"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.DB
	cache *cache.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, cacheManager *cache.Manager) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheManager}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string       `json:"status"`
	Database string       `json:"database"`
	Message  string       `json:"message,omitempty"`
	Cache    *cache.Stats `json:"cache,omitempty"`
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "healthy",
		Database: "ok",
	}

	if err := h.db.IsHealthy(); err != nil {
		response.Status = "unhealthy"
		response.Database = "error"
		response.Message = err.Error()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(response)
		return
	}

	if h.cache != nil {
		if stats, err := h.cache.GetStats(); err != nil {
			log.Printf("WARN: Failed to collect cache stats: %v", err)
		} else {
			response.Cache = &stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
