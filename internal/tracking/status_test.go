package tracking

import "testing"

func TestInferStatusCode(t *testing.T) {
	tests := []struct {
		title    string
		position int
		want     string
	}{
		{"Создан", 0, "created"},
		{"Заказ оформлен", 0, "created"},
		{"Принят на склад отправителя", 1, "accepted"},
		{"В пути", 2, "in_transit"},
		{"Отправлен в город назначения", 2, "in_transit"},
		{"Прибыл на склад доставки", 3, "arrived"},
		{"Готов к выдаче", 4, "ready_for_pickup"},
		{"Вручен", 5, "delivered"},
		{"Доставлен получателю", 5, "delivered"},
		{"Отказ от получения", 5, "refused"},
		{"Возвращается отправителю", 6, "returning"},
		{"Неизвестная формулировка", 7, "status_7"},
		{"", 3, "status_3"},
	}

	for _, tt := range tests {
		if got := InferStatusCode(tt.title, tt.position); got != tt.want {
			t.Errorf("InferStatusCode(%q, %d) = %q, want %q", tt.title, tt.position, got, tt.want)
		}
	}
}

func TestStateAfterSuccess(t *testing.T) {
	record := func(code string) *StatusRecord {
		return &StatusRecord{StatusCode: code}
	}

	tests := []struct {
		name    string
		current ShipmentState
		record  *StatusRecord
		want    ShipmentState
	}{
		{"pending registers on first success", StatePendingRegistration, record("accepted"), StateRegistered},
		{"empty state treated as pending", "", record("accepted"), StateRegistered},
		{"registered moves to in transit", StateRegistered, record("in_transit"), StateInTransit},
		{"in transit stays in transit", StateInTransit, record("arrived"), StateInTransit},
		{"delivered code terminates", StateInTransit, record("delivered"), StateDelivered},
		{"delivered even from pending", StatePendingRegistration, record("delivered"), StateDelivered},
		{"refused cancels", StateInTransit, record("refused"), StateCancelled},
		{"manual is sticky", StateManual, record("delivered"), StateManual},
		{"delivered state does not regress", StateDelivered, record("in_transit"), StateDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateAfterSuccess(tt.current, tt.record); got != tt.want {
				t.Errorf("StateAfterSuccess(%s) = %s, want %s", tt.current, got, tt.want)
			}
		})
	}
}

func TestShipmentStateValid(t *testing.T) {
	for _, s := range []ShipmentState{StatePendingRegistration, StateRegistered, StateInTransit, StateDelivered, StateCancelled, StateManual} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if ShipmentState("SHIPPED").Valid() {
		t.Error("unknown state should be invalid")
	}
}
