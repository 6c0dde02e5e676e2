package tracking

import (
	"fmt"
	"strings"
)

// statusPatterns maps Russian status-title substrings to stable lowercase
// codes. Order matters: the first matching entry wins, so the more specific
// phrases come before the generic ones.
var statusPatterns = []struct {
	substrings []string
	code       string
}{
	{[]string{"готов к выдаче", "ожидает в пункте", "готова к выдаче"}, "ready_for_pickup"},
	{[]string{"вручен", "доставлен", "получен получателем"}, "delivered"},
	{[]string{"отказ", "не востребован"}, "refused"},
	{[]string{"возвращ", "возврат"}, "returning"},
	{[]string{"прибыл", "поступил", "прибытие"}, "arrived"},
	{[]string{"в пути", "передан на доставку", "отправлен", "направлен", "покинул"}, "in_transit"},
	{[]string{"принят", "принято на склад"}, "accepted"},
	{[]string{"создан", "оформлен", "зарегистрирован"}, "created"},
}

// InferStatusCode maps a status title to a stable code. Unmatched titles get
// a positional fallback ("status_<n>") so downstream consumers always see a
// non-empty code even when the carrier invents new wording.
func InferStatusCode(title string, position int) string {
	lower := strings.ToLower(title)
	for _, p := range statusPatterns {
		for _, sub := range p.substrings {
			if strings.Contains(lower, sub) {
				return p.code
			}
		}
	}
	return fmt.Sprintf("status_%d", position)
}

// StateAfterSuccess computes the next shipment lifecycle state after a
// successful resolution. MANUAL shipments never move. Delivery and refusal
// are derived from the normalized status code; otherwise the first success
// with a carrier UUID registers the shipment and later successes mark it in
// transit.
func StateAfterSuccess(current ShipmentState, record *StatusRecord) ShipmentState {
	if current == StateManual {
		return StateManual
	}
	switch record.StatusCode {
	case "delivered":
		return StateDelivered
	case "refused":
		return StateCancelled
	}
	switch current {
	case StatePendingRegistration, "":
		return StateRegistered
	case StateRegistered:
		return StateInTransit
	default:
		return current
	}
}
