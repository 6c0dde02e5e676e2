package tracking

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testOrderUUID = "72753031-1111-2222-3333-444455556666"

// newCarrierServer fakes the carrier: a token endpoint plus order lookup and
// order fetch, with per-path call counters.
func newCarrierServer(t *testing.T, orderHandler http.HandlerFunc) (*httptest.Server, *TokenManager) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":3600}`)
	})
	mux.HandleFunc("/orders", orderHandler)
	mux.HandleFunc("/orders/", orderHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tokens := NewTokenManager("account", "secure", server.URL+"/oauth/token")
	return server, tokens
}

func orderJSON() string {
	return fmt.Sprintf(`{
		"uuid": %q,
		"cdek_number": "1234567890",
		"status": {"code": "DELIVERED", "name": "Вручен", "city": "Казань"},
		"statuses": [
			{"code": "CREATED", "name": "Создан", "date_time": "2024-03-01T10:00:00Z", "city": "Москва"},
			{"code": "DELIVERED", "name": "Вручен", "date_time": "2024-03-05T15:30:00Z", "city": "Казань"}
		],
		"from_location": {"city": "Москва"},
		"to_location": {"city": "Казань"}
	}`, testOrderUUID)
}

func TestAPIFetcherResolvesNumberThenOrder(t *testing.T) {
	var listCalls, orderCalls int
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/orders" {
			listCalls++
			if got := r.URL.Query().Get("cdek_number"); got != "1234567890" {
				t.Errorf("lookup number = %q", got)
			}
			fmt.Fprintf(w, `{"orders":[{"uuid":%q}]}`, testOrderUUID)
			return
		}
		orderCalls++
		if !strings.HasSuffix(r.URL.Path, testOrderUUID) {
			t.Errorf("order path = %q", r.URL.Path)
		}
		fmt.Fprint(w, orderJSON())
	})

	f := NewAPIFetcher(server.URL, tokens)
	rec, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	if err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}

	if listCalls != 1 || orderCalls != 1 {
		t.Errorf("calls = %d list, %d order; want 1 each", listCalls, orderCalls)
	}
	if rec.OrderUUID != testOrderUUID {
		t.Errorf("uuid = %q", rec.OrderUUID)
	}
	if rec.Status != "Вручен" || rec.StatusCode != "delivered" {
		t.Errorf("status = %q (%q)", rec.Status, rec.StatusCode)
	}
	if rec.FromCity != "Москва" || rec.ToCity != "Казань" {
		t.Errorf("route = %q -> %q", rec.FromCity, rec.ToCity)
	}
	if len(rec.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.Events))
	}
	if rec.Events[0].Date == nil || rec.Events[0].Date.Day() != 1 {
		t.Errorf("first event date = %v", rec.Events[0].Date)
	}
}

func TestAPIFetcherSkipsLookupWithCachedUUID(t *testing.T) {
	var listCalls int
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/orders" {
			listCalls++
			http.Error(w, "should not be called", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, orderJSON())
	})

	f := NewAPIFetcher(server.URL, tokens)
	if _, err := f.FetchByIdentifier(context.Background(), "1234567890", testOrderUUID); err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}
	if listCalls != 0 {
		t.Errorf("number lookup issued despite cached UUID")
	}
}

func TestAPIFetcherRetriesOnceOn401(t *testing.T) {
	var orderCalls int
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/orders" {
			fmt.Fprintf(w, `{"orders":[{"uuid":%q}]}`, testOrderUUID)
			return
		}
		orderCalls++
		if orderCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, orderJSON())
	})

	f := NewAPIFetcher(server.URL, tokens)
	rec, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	if err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}
	if orderCalls != 2 {
		t.Errorf("order endpoint called %d times, want exactly 2", orderCalls)
	}
	if rec.StatusCode != "delivered" {
		t.Errorf("status code = %q", rec.StatusCode)
	}
}

func TestAPIFetcherSecond401IsUnauthorized(t *testing.T) {
	var orderCalls int
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/orders" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"orders":[{"uuid":%q}]}`, testOrderUUID)
			return
		}
		orderCalls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	f := NewAPIFetcher(server.URL, tokens)
	_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrUnauthorized {
		t.Errorf("error code = %s, want UNAUTHORIZED", trackErr.Code)
	}
	if orderCalls != 2 {
		t.Errorf("order endpoint called %d times, want 2 (no retry loop)", orderCalls)
	}
}

func TestAPIFetcherErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		listStatus int
		listBody   string
		wantCode   ErrorCode
	}{
		{"gone means wrong id type", http.StatusGone, "", ErrInvalidIDType},
		{"empty list means not found", http.StatusOK, `{"orders":[]}`, ErrOrderNotFound},
		{"server error surfaces as api error", http.StatusInternalServerError, "", ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/orders" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.listStatus)
				fmt.Fprint(w, tt.listBody)
			})

			f := NewAPIFetcher(server.URL, tokens)
			_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
			trackErr := AsError(err, ErrAPIError)
			if trackErr.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", trackErr.Code, tt.wantCode)
			}
		})
	}
}

func TestAPIFetcherOrder404(t *testing.T) {
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/orders" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"orders":[{"uuid":%q}]}`, testOrderUUID)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	f := NewAPIFetcher(server.URL, tokens)
	_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrOrderNotFound {
		t.Errorf("error code = %s, want ORDER_NOT_FOUND", trackErr.Code)
	}
}

func TestAPIFetcherTimelineFromEventsField(t *testing.T) {
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/orders" {
			fmt.Fprintf(w, `{"orders":[{"uuid":%q}]}`, testOrderUUID)
			return
		}
		fmt.Fprintf(w, `{
			"uuid": %q,
			"events": [{"code": "IN_TRANSIT", "name": "В пути", "date_time": "05.03.2024"}]
		}`, testOrderUUID)
	})

	f := NewAPIFetcher(server.URL, tokens)
	rec, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	if err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}
	if len(rec.Events) != 1 {
		t.Fatalf("events = %d, want 1 from events field", len(rec.Events))
	}
	if rec.Events[0].Date == nil {
		t.Error("non-RFC3339 date should fall back to ParseEventDate")
	}
	if rec.Status != "В пути" {
		t.Errorf("status = %q, want last event fallback", rec.Status)
	}
}

func TestAPIFetcherClientTimeoutIsTimeout(t *testing.T) {
	server, tokens := newCarrierServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, orderJSON())
	})

	f := NewAPIFetcher(server.URL, tokens)
	f.client.Timeout = 50 * time.Millisecond

	_, err := f.FetchByIdentifier(context.Background(), "1234567890", testOrderUUID)
	if err == nil {
		t.Fatal("expected error from slow carrier")
	}
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrTimeout {
		t.Errorf("code = %s, want TIMEOUT", trackErr.Code)
	}
}
