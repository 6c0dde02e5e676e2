package tracking

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Key families used to score how "tracking-shaped" a JSON object looks.
// Matching is substring-based on lowercased keys so vendor variations such
// as statusHistory or trackingEvents still hit.
var (
	statusKeys = []string{"status", "state", "statuscode", "statusname", "deliverymode"}
	eventKeys  = []string{"statuses", "events", "history", "checkpoints", "steps", "timeline", "statushistory"}
	cityKeys   = []string{"city", "cityname", "location", "settlement"}

	eventTitleKeys = []string{"name", "title", "status", "statusname", "description", "text", "label"}
	eventDateKeys  = []string{"date", "datetime", "date_time", "timestamp", "time", "createdat", "created_at"}
	eventCityKeys  = []string{"city", "cityname", "city_name", "location", "settlement", "place"}
	eventCodeKeys  = []string{"code", "statuscode", "status_code", "type"}

	orderNumberKeys = []string{"cdek_number", "ordernumber", "order_number", "number", "tracknumber", "track_number"}
	orderUUIDKeys   = []string{"uuid", "orderuuid", "order_uuid"}
	fromCityKeys    = []string{"from_city", "fromcity", "sendercity", "sender_city", "from_location"}
	toCityKeys      = []string{"to_city", "tocity", "receivercity", "receiver_city", "to_location"}
)

type minedCandidate struct {
	obj   map[string]interface{}
	score int
	order int // discovery order, tiebreaker
}

// MinePayloads searches intercepted JSON bodies for a tracking-shaped object
// and converts the best match. Objects are scored by key families (status
// and event-array keys weigh double, city keys single); the highest scorer
// that yields at least one usable event wins. Returns nil when nothing in
// the payloads looks like tracking data.
func MinePayloads(payloads [][]byte, trackNumber string, now time.Time) *StatusRecord {
	var candidates []minedCandidate
	for _, raw := range payloads {
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		collectCandidates(doc, &candidates)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	for _, c := range candidates {
		if c.score == 0 {
			break
		}
		if rec := recordFromObject(c.obj, trackNumber, now); rec != nil {
			return rec
		}
	}
	return nil
}

func collectCandidates(node interface{}, out *[]minedCandidate) {
	switch v := node.(type) {
	case map[string]interface{}:
		if score := scoreObject(v); score > 0 {
			*out = append(*out, minedCandidate{obj: v, score: score, order: len(*out)})
		}
		for _, child := range v {
			collectCandidates(child, out)
		}
	case []interface{}:
		for _, child := range v {
			collectCandidates(child, out)
		}
	}
}

func scoreObject(obj map[string]interface{}) int {
	score := 0
	for key, value := range obj {
		lk := strings.ToLower(key)
		switch {
		case matchesFamily(lk, eventKeys):
			if _, ok := value.([]interface{}); ok {
				score += 2
			}
		case matchesFamily(lk, statusKeys):
			score += 2
		case matchesFamily(lk, cityKeys):
			score++
		}
	}
	return score
}

func matchesFamily(lowerKey string, family []string) bool {
	for _, f := range family {
		if strings.Contains(lowerKey, f) {
			return true
		}
	}
	return false
}

// recordFromObject converts a scored object to a record. Fails (returns nil)
// when no event list produces at least one event with a title.
func recordFromObject(obj map[string]interface{}, trackNumber string, now time.Time) *StatusRecord {
	var events []StatusEvent
	activeIdx := -1
	for key, value := range obj {
		list, ok := value.([]interface{})
		if !ok || !matchesFamily(strings.ToLower(key), eventKeys) {
			continue
		}
		events, activeIdx = eventsFromList(list, now)
		if len(events) > 0 {
			break
		}
	}
	if len(events) == 0 {
		return nil
	}

	fields := RawFields{
		TrackNumber: trackNumber,
		OrderNumber: lookupString(obj, orderNumberKeys),
		OrderUUID:   lookupString(obj, orderUUIDKeys),
		Status:      statusFromObject(obj),
		CurrentCity: lookupString(obj, cityKeys),
		FromCity:    lookupCity(obj, fromCityKeys),
		ToCity:      lookupCity(obj, toCityKeys),
		ActiveIndex: activeIdx,
	}
	return Normalize(events, fields, now)
}

func eventsFromList(list []interface{}, now time.Time) ([]StatusEvent, int) {
	var events []StatusEvent
	activeIdx := -1
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ev := StatusEvent{
			Title: lookupString(obj, eventTitleKeys),
			Code:  lookupString(obj, eventCodeKeys),
			City:  lookupCity(obj, eventCityKeys),
		}
		if raw := lookupString(obj, eventDateKeys); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				utc := t.UTC()
				ev.Date = &utc
			} else {
				ev.Date = ParseEventDate(raw, now)
			}
		}
		if ev.Title == "" {
			continue
		}
		if isActiveValue(obj) {
			activeIdx = len(events)
		}
		events = append(events, ev)
	}
	return events, activeIdx
}

// statusFromObject resolves the current status text, following either a
// plain string or a nested {code, name} object.
func statusFromObject(obj map[string]interface{}) string {
	for key, value := range obj {
		if !matchesFamily(strings.ToLower(key), statusKeys) {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]interface{}:
			if s := lookupString(v, []string{"name", "title", "text", "code"}); s != "" {
				return s
			}
		}
	}
	return ""
}

func isActiveValue(obj map[string]interface{}) bool {
	for key, value := range obj {
		lk := strings.ToLower(key)
		if lk != "active" && lk != "current" && lk != "iscurrent" && lk != "is_current" {
			continue
		}
		switch v := value.(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if v == "true" || v == "1" {
				return true
			}
		case float64:
			if v != 0 {
				return true
			}
		}
	}
	return false
}

func lookupString(obj map[string]interface{}, family []string) string {
	// Exact match first so "name" wins over "nameExtra".
	for _, f := range family {
		if v, ok := obj[f].(string); ok && v != "" {
			return v
		}
	}
	for key, value := range obj {
		if s, ok := value.(string); ok && s != "" && matchesFamily(strings.ToLower(key), family) {
			return s
		}
	}
	return ""
}

// lookupCity handles both flat string fields and nested location objects
// such as {"from_location": {"city": "Москва"}}.
func lookupCity(obj map[string]interface{}, family []string) string {
	if s := lookupString(obj, family); s != "" {
		return s
	}
	for key, value := range obj {
		nested, ok := value.(map[string]interface{})
		if !ok || !matchesFamily(strings.ToLower(key), family) {
			continue
		}
		if s := lookupString(nested, []string{"city", "name"}); s != "" {
			return s
		}
	}
	return ""
}
