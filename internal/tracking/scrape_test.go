package tracking

import (
	"context"
	"testing"
)

// stubLoader returns a canned capture instead of driving a browser.
type stubLoader struct {
	capture *PageCapture
	err     error
	lastURL string
}

func (s *stubLoader) Load(_ context.Context, url string) (*PageCapture, error) {
	s.lastURL = url
	if s.err != nil {
		return nil, s.err
	}
	return s.capture, nil
}

func TestScrapeFetcherBuildsPageURL(t *testing.T) {
	loader := &stubLoader{capture: &PageCapture{HTML: "<html><body></body></html>"}}
	f := NewScrapeFetcher("https://www.cdek.ru/ru/tracking", loader)

	f.FetchByIdentifier(context.Background(), "1234567890", "")
	want := "https://www.cdek.ru/ru/tracking?orderNumber=1234567890"
	if loader.lastURL != want {
		t.Errorf("page URL = %q, want %q", loader.lastURL, want)
	}

	f = NewScrapeFetcher("https://www.cdek.ru/ru/tracking?lang=ru", loader)
	f.FetchByIdentifier(context.Background(), "1234567890", "")
	want = "https://www.cdek.ru/ru/tracking?lang=ru&orderNumber=1234567890"
	if loader.lastURL != want {
		t.Errorf("page URL = %q, want %q", loader.lastURL, want)
	}
}

func TestScrapeFetcherFailurePhrases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ErrorCode
	}{
		{"order not found", "<html><body>Заказ не найден</body></html>", ErrOrderNotFound},
		{"nothing found", "<html><body>По вашему запросу ничего не найдено</body></html>", ErrOrderNotFound},
		{"captcha", "<html><body>Подтвердите, что вы не робот</body></html>", ErrCaptchaRequired},
		{"blocked", "<html><body>Доступ ограничен</body></html>", ErrPageBlocked},
		{"too many requests", "<html><body>Слишком много запросов</body></html>", ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The failure page also carries a timeline-looking payload; the
			// phrase check must short-circuit before any mining.
			loader := &stubLoader{capture: &PageCapture{
				HTML:     tt.body,
				Payloads: [][]byte{[]byte(`{"status": "x", "events": [{"name": "Вручен"}]}`)},
			}}
			f := NewScrapeFetcher("https://example.test/tracking", loader)

			_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
			trackErr := AsError(err, ErrAPIError)
			if trackErr.Code != tt.want {
				t.Errorf("error code = %s, want %s", trackErr.Code, tt.want)
			}
		})
	}
}

func TestScrapeFetcherPrefersPayloadsOverDOM(t *testing.T) {
	loader := &stubLoader{capture: &PageCapture{
		HTML: `<ul class="statuses-list"><li class="statuses-list__item"><b>Из разметки</b></li></ul>`,
		Payloads: [][]byte{[]byte(`{
			"status": "Из данных",
			"statuses": [{"name": "Из данных"}]
		}`)},
	}}
	f := NewScrapeFetcher("https://example.test/tracking", loader)

	rec, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	if err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}
	if rec.Status != "Из данных" {
		t.Errorf("status = %q, payload data should win over the DOM", rec.Status)
	}
}

func TestScrapeFetcherFallsBackToDOM(t *testing.T) {
	loader := &stubLoader{capture: &PageCapture{
		HTML:     `<ul class="statuses-list"><li class="statuses-list__item"><b>Вручен</b></li></ul>`,
		Payloads: [][]byte{[]byte(`{"csrf": "token"}`)},
	}}
	f := NewScrapeFetcher("https://example.test/tracking", loader)

	rec, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	if err != nil {
		t.Fatalf("FetchByIdentifier: %v", err)
	}
	if rec.StatusCode != "delivered" {
		t.Errorf("status code = %q, want delivered from DOM fallback", rec.StatusCode)
	}
}

func TestScrapeFetcherLayoutChanged(t *testing.T) {
	loader := &stubLoader{capture: &PageCapture{
		HTML: `<html><body><h1>Отслеживание</h1></body></html>`,
	}}
	f := NewScrapeFetcher("https://example.test/tracking", loader)

	_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrPageLayoutChanged {
		t.Errorf("error code = %s, want PAGE_LAYOUT_CHANGED", trackErr.Code)
	}
}

func TestScrapeFetcherLoaderErrorPassesThrough(t *testing.T) {
	loader := &stubLoader{err: NewError(ErrTimeout, "page load timed out")}
	f := NewScrapeFetcher("https://example.test/tracking", loader)

	_, err := f.FetchByIdentifier(context.Background(), "1234567890", "")
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrTimeout {
		t.Errorf("error code = %s, want TIMEOUT", trackErr.Code)
	}
}
