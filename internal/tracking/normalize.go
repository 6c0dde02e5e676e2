package tracking

import (
	"strings"
	"time"
)

// RawFields carries the page- or payload-level fields extracted alongside the
// timeline, before normalization.
type RawFields struct {
	TrackNumber string
	OrderNumber string
	OrderUUID   string
	Status      string
	CurrentCity string
	FromCity    string
	ToCity      string
	// ActiveIndex is the index into the event slice of the entry the source
	// marked as current, or -1 when nothing was marked.
	ActiveIndex int
}

// Normalize converts heterogeneous API/JSON/DOM output into one StatusRecord.
// It never fails: events with no title, no date and no city are dropped as
// noise, and every optional field falls back through the derivation chain
// (explicit field, active event, last event, declared destination). A record
// with zero usable events is still returned; fetchers decide whether that
// means the page layout changed.
func Normalize(events []StatusEvent, fields RawFields, now time.Time) *StatusRecord {
	usable := make([]StatusEvent, 0, len(events))
	activeIdx := -1
	for i, ev := range events {
		ev.Title = collapseSpaces(ev.Title)
		ev.City = collapseSpaces(ev.City)
		if ev.Title == "" && ev.Date == nil && ev.City == "" {
			continue
		}
		if ev.Code == "" {
			ev.Code = InferStatusCode(ev.Title, len(usable))
		}
		if i == fields.ActiveIndex {
			activeIdx = len(usable)
		}
		usable = append(usable, ev)
	}

	rec := &StatusRecord{
		TrackNumber: fields.TrackNumber,
		OrderNumber: collapseSpaces(fields.OrderNumber),
		OrderUUID:   fields.OrderUUID,
		Status:      collapseSpaces(fields.Status),
		CurrentCity: collapseSpaces(fields.CurrentCity),
		FromCity:    collapseSpaces(fields.FromCity),
		ToCity:      collapseSpaces(fields.ToCity),
		Events:      usable,
		FetchedAt:   now,
	}

	current := currentEvent(usable, activeIdx)
	if rec.Status == "" && current != nil {
		rec.Status = current.Title
	}
	if rec.CurrentCity == "" && current != nil {
		rec.CurrentCity = current.City
	}
	if rec.CurrentCity == "" {
		rec.CurrentCity = rec.ToCity
	}
	if rec.Status != "" {
		rec.StatusCode = InferStatusCode(rec.Status, len(usable))
	}
	return rec
}

// currentEvent picks the event representing the shipment's present
// checkpoint: the source-marked active entry when one exists, otherwise the
// structurally last event.
func currentEvent(events []StatusEvent, activeIdx int) *StatusEvent {
	if len(events) == 0 {
		return nil
	}
	if activeIdx >= 0 && activeIdx < len(events) {
		return &events[activeIdx]
	}
	return &events[len(events)-1]
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
