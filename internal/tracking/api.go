package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const apiTimeout = 15 * time.Second

// APIFetcher resolves tracking identifiers through the authenticated carrier
// REST API: human-readable number -> carrier order UUID -> order resource.
type APIFetcher struct {
	baseURL string
	tokens  *TokenManager
	client  *http.Client
	now     Clock
}

// NewAPIFetcher creates an API fetcher against the given carrier base URL.
func NewAPIFetcher(baseURL string, tokens *TokenManager) *APIFetcher {
	return &APIFetcher{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: apiTimeout},
		now:     time.Now,
	}
}

// Carrier order payloads. The API ships many more fields; only the status
// surface is decoded.
type apiOrderList struct {
	Orders []apiOrder `json:"orders"`
}

type apiOrder struct {
	UUID       string      `json:"uuid"`
	Number     string      `json:"cdek_number"`
	Status     *apiStatus  `json:"status"`
	Statuses   []apiStatus `json:"statuses"`
	Events     []apiStatus `json:"events"`
	FromCity   string      `json:"from_city"`
	ToCity     string      `json:"to_city"`
	FromCityV2 apiCity     `json:"from_location"`
	ToCityV2   apiCity     `json:"to_location"`
}

type apiStatus struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DateTime string `json:"date_time"`
	City     string `json:"city"`
}

type apiCity struct {
	City string `json:"city"`
}

// FetchByIdentifier implements StatusFetcher. When no carrier UUID is cached
// it first resolves one from the human-readable number. A stale token (401
// on the order fetch) triggers exactly one forced refresh and one retry; a
// second 401 surfaces as UNAUTHORIZED rather than looping.
func (f *APIFetcher) FetchByIdentifier(ctx context.Context, id, cachedUUID string) (*StatusRecord, error) {
	token, err := f.tokens.Token(ctx, false)
	if err != nil {
		return nil, err
	}

	uuid := cachedUUID
	if uuid == "" {
		uuid, token, err = f.resolveUUID(ctx, id, token)
		if err != nil {
			return nil, err
		}
	}

	order, status, err := f.getOrder(ctx, uuid, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		token, err = f.tokens.Token(ctx, true)
		if err != nil {
			return nil, err
		}
		order, status, err = f.getOrder(ctx, uuid, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, NewError(ErrUnauthorized, "carrier rejected a freshly issued token")
		}
	}
	if status == http.StatusNotFound {
		return nil, NewError(ErrOrderNotFound, "order not found for "+id)
	}
	if status < 200 || status > 299 {
		return nil, NewError(ErrAPIError, fmt.Sprintf("order fetch returned status %d", status))
	}

	return f.toRecord(id, uuid, order), nil
}

// resolveUUID queries the orders endpoint by human-readable number. It may
// consume the one allowed token refresh when the first attempt gets a 401;
// the refreshed token is returned so the order fetch reuses it.
func (f *APIFetcher) resolveUUID(ctx context.Context, id, token string) (string, string, error) {
	list, status, err := f.listOrders(ctx, id, token)
	if err != nil {
		return "", "", err
	}
	if status == http.StatusUnauthorized {
		token, err = f.tokens.Token(ctx, true)
		if err != nil {
			return "", "", err
		}
		list, status, err = f.listOrders(ctx, id, token)
		if err != nil {
			return "", "", err
		}
		if status == http.StatusUnauthorized {
			return "", "", NewError(ErrUnauthorized, "carrier rejected a freshly issued token")
		}
	}
	switch {
	case status == http.StatusGone:
		return "", "", NewError(ErrInvalidIDType, "identifier is not queryable by number")
	case status < 200 || status > 299:
		return "", "", NewError(ErrAPIError, fmt.Sprintf("order lookup returned status %d", status))
	}
	if len(list.Orders) == 0 || list.Orders[0].UUID == "" {
		return "", "", NewError(ErrOrderNotFound, "no order matches "+id)
	}
	return list.Orders[0].UUID, token, nil
}

func (f *APIFetcher) listOrders(ctx context.Context, id, token string) (*apiOrderList, int, error) {
	u := fmt.Sprintf("%s/orders?cdek_number=%s", f.baseURL, url.QueryEscape(id))
	body, status, err := f.get(ctx, u, token)
	if err != nil {
		return nil, 0, err
	}
	if status < 200 || status > 299 {
		return &apiOrderList{}, status, nil
	}
	var list apiOrderList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, 0, WrapError(ErrAPIError, "malformed order list response", err)
	}
	return &list, status, nil
}

func (f *APIFetcher) getOrder(ctx context.Context, uuid, token string) (*apiOrder, int, error) {
	u := fmt.Sprintf("%s/orders/%s", f.baseURL, url.PathEscape(uuid))
	body, status, err := f.get(ctx, u, token)
	if err != nil {
		return nil, 0, err
	}
	if status < 200 || status > 299 {
		return nil, status, nil
	}
	var order apiOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, 0, WrapError(ErrAPIError, "malformed order response", err)
	}
	return &order, status, nil
}

func (f *APIFetcher) get(ctx context.Context, u, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, WrapError(ErrAPIError, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		// The client's own timeout is a url.Error with Timeout(), not a
		// context deadline.
		var netErr net.Error
		if ctx.Err() == context.DeadlineExceeded || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, 0, WrapError(ErrTimeout, "carrier API timed out", err)
		}
		return nil, 0, WrapError(ErrAPIError, "carrier API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, WrapError(ErrAPIError, "read carrier API response", err)
	}
	return body, resp.StatusCode, nil
}

// toRecord converts the order payload to the canonical record. Preference
// order for the current status: the single status object's name/code, else
// the last entry of the statuses/events array (source order is assumed
// chronological; sorting is the normalizer's concern, not this fetcher's).
func (f *APIFetcher) toRecord(id, uuid string, order *apiOrder) *StatusRecord {
	now := f.now()

	timeline := order.Statuses
	if len(timeline) == 0 {
		timeline = order.Events
	}
	events := make([]StatusEvent, 0, len(timeline))
	for _, s := range timeline {
		ev := StatusEvent{Code: s.Code, Title: s.Name, City: s.City}
		if s.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, s.DateTime); err == nil {
				utc := t.UTC()
				ev.Date = &utc
			} else {
				ev.Date = ParseEventDate(s.DateTime, now)
			}
		}
		events = append(events, ev)
	}

	fields := RawFields{
		TrackNumber: id,
		OrderNumber: order.Number,
		OrderUUID:   uuid,
		FromCity:    firstNonEmpty(order.FromCity, order.FromCityV2.City),
		ToCity:      firstNonEmpty(order.ToCity, order.ToCityV2.City),
		ActiveIndex: -1,
	}
	if order.Status != nil {
		fields.Status = firstNonEmpty(order.Status.Name, order.Status.Code)
		fields.CurrentCity = order.Status.City
	}
	return Normalize(events, fields, now)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
