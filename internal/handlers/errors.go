package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"crm-portal/internal/tracking"
)

// ErrorResponse is the JSON error body for tracking failures
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// WriteTrackingError maps a tracking error to its HTTP status and writes a
// JSON error body. Non-tracking errors get a generic 500.
func WriteTrackingError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var trackErr *tracking.Error
	if !errors.As(err, &trackErr) {
		log.Printf("ERROR: Unexpected tracking failure: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   "INTERNAL",
			Message: "internal error",
		})
		return
	}

	status := trackErr.Code.HTTPStatus()
	if status >= 500 {
		log.Printf("ERROR: Tracking failed with %s: %v", trackErr.Code, err)
	} else {
		log.Printf("WARN: Tracking rejected with %s: %v", trackErr.Code, err)
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     string(trackErr.Code),
		Message:   trackErr.Message,
		Retryable: trackErr.Code.Retryable(),
	})
}
