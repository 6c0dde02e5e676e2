package tracking

import (
	"context"
	"time"
)

// ShipmentState represents the coarse lifecycle state of a shipment
type ShipmentState string

const (
	StatePendingRegistration ShipmentState = "PENDING_REGISTRATION"
	StateRegistered          ShipmentState = "REGISTERED"
	StateInTransit           ShipmentState = "IN_TRANSIT"
	StateDelivered           ShipmentState = "DELIVERED"
	StateCancelled           ShipmentState = "CANCELLED"
	StateManual              ShipmentState = "MANUAL"
)

// Valid reports whether s is one of the defined lifecycle states.
func (s ShipmentState) Valid() bool {
	switch s {
	case StatePendingRegistration, StateRegistered, StateInTransit,
		StateDelivered, StateCancelled, StateManual:
		return true
	}
	return false
}

// StatusEvent is one checkpoint in a shipment's timeline, in source order
type StatusEvent struct {
	Code  string     `json:"code"`
	Title string     `json:"title"`
	Date  *time.Time `json:"date,omitempty"`
	City  string     `json:"city,omitempty"`
}

// StatusRecord is the canonical normalized tracking result
type StatusRecord struct {
	TrackNumber string        `json:"track_number"`
	OrderNumber string        `json:"order_number,omitempty"`
	OrderUUID   string        `json:"order_uuid,omitempty"`
	Status      string        `json:"status"`
	StatusCode  string        `json:"status_code,omitempty"`
	CurrentCity string        `json:"current_city,omitempty"`
	FromCity    string        `json:"from_city,omitempty"`
	ToCity      string        `json:"to_city,omitempty"`
	Events      []StatusEvent `json:"events"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// LastEventWithDate returns the last event carrying a parsed date, or nil.
func (r *StatusRecord) LastEventWithDate() *StatusEvent {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Date != nil {
			return &r.Events[i]
		}
	}
	return nil
}

// Timestamp returns the most meaningful instant for "last update":
// the date of the last dated event, else the fetch time.
func (r *StatusRecord) Timestamp() time.Time {
	if ev := r.LastEventWithDate(); ev != nil {
		return *ev.Date
	}
	return r.FetchedAt
}

// StatusFetcher is implemented by both resolution strategies: the
// authenticated carrier API and the headless-browser scraper.
type StatusFetcher interface {
	// FetchByIdentifier resolves a tracking identifier to a normalized
	// status record. cachedUUID may be empty; fetchers that do not use
	// carrier UUIDs ignore it.
	FetchByIdentifier(ctx context.Context, id, cachedUUID string) (*StatusRecord, error)
}

// Clock abstracts time.Now so token/cache expiry is testable
type Clock func() time.Time
