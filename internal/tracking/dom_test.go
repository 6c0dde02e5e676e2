package tracking

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const trackedPageHTML = `
<html><body>
	<div class="tracking-header">
		<span class="order-number">1234567890</span>
		<span class="order-route">Москва — Санкт-Петербург</span>
	</div>
	<div class="order-status__title">В пути</div>
	<div class="order-status__city">Тверь</div>
	<ul class="order-timeline">
		<li class="order-timeline__item">
			<span class="order-timeline__title">Создан</span>
			<span class="order-timeline__date">01.03.2024</span>
			<span class="order-timeline__city">Москва</span>
		</li>
		<li class="order-timeline__item order-timeline__item--active">
			<span class="order-timeline__title">В пути</span>
			<span class="order-timeline__date">03.03.2024</span>
			<span class="order-timeline__city">Тверь</span>
		</li>
		<li class="order-timeline__item">
			<span class="order-timeline__title">Ожидается</span>
		</li>
	</ul>
</body></html>`

func TestScrapeDocument(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	rec := ScrapeDocument(docFromHTML(t, trackedPageHTML), "1234567890", now)
	require.NotNil(t, rec)

	assert.Equal(t, "1234567890", rec.OrderNumber)
	assert.Equal(t, "В пути", rec.Status)
	assert.Equal(t, "in_transit", rec.StatusCode)
	assert.Equal(t, "Тверь", rec.CurrentCity)
	assert.Equal(t, "Москва", rec.FromCity)
	assert.Equal(t, "Санкт-Петербург", rec.ToCity)

	require.Len(t, rec.Events, 3)
	require.NotNil(t, rec.Events[0].Date)
	assert.Equal(t, "2024-03-01", rec.Events[0].Date.Format("2006-01-02"))
	assert.Nil(t, rec.Events[2].Date)
}

func TestScrapeDocumentActiveNodeSuppliesStatus(t *testing.T) {
	// No page-level status element: the middle node is marked active and
	// must win over the structurally last one.
	html := `
	<div class="tracking-timeline">
		<div class="tracking-timeline__step">
			<div class="tracking-timeline__label">Создан</div>
		</div>
		<div class="tracking-timeline__step" data-current="true">
			<div class="tracking-timeline__label">Прибыл в город</div>
			<div class="tracking-timeline__city">Омск</div>
		</div>
		<div class="tracking-timeline__step">
			<div class="tracking-timeline__label">Ожидает вручения</div>
		</div>
	</div>`

	rec := ScrapeDocument(docFromHTML(t, html), "1234567890", time.Now())
	require.NotNil(t, rec)
	assert.Equal(t, "Прибыл в город", rec.Status)
	assert.Equal(t, "Омск", rec.CurrentCity)
}

func TestScrapeDocumentLastEventWhenNothingMarked(t *testing.T) {
	html := `
	<ul class="statuses-list">
		<li class="statuses-list__item"><b>Создан</b></li>
		<li class="statuses-list__item"><b>Вручен</b></li>
	</ul>`

	rec := ScrapeDocument(docFromHTML(t, html), "1234567890", time.Now())
	require.NotNil(t, rec)
	assert.Equal(t, "Вручен", rec.Status)
	assert.Equal(t, "delivered", rec.StatusCode)
}

func TestScrapeDocumentNoTimeline(t *testing.T) {
	html := `<html><body><h1>Отслеживание</h1><p>Введите номер заказа</p></body></html>`
	assert.Nil(t, ScrapeDocument(docFromHTML(t, html), "1234567890", time.Now()))
}

func TestIsActiveNode(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"active class", `<li class="step step--active">x</li>`, true},
		{"current class", `<li class="step_current">x</li>`, true},
		{"plain class", `<li class="step">x</li>`, false},
		{"data-active true", `<li data-active="true">x</li>`, true},
		{"data-active false", `<li data-active="false">x</li>`, false},
		{"data-state done", `<li data-state="done">x</li>`, false},
		{"data-state inprogress", `<li data-state="inprogress">x</li>`, true},
		{"aria-current step", `<li aria-current="step">x</li>`, true},
		{"aria-current other", `<li aria-current="page">x</li>`, false},
		{"nested marker", `<li><span class="is-active">x</span></li>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docFromHTML(t, "<ul>"+tt.html+"</ul>")
			node := doc.Find("li").First()
			assert.Equal(t, tt.want, isActiveNode(node))
		})
	}
}

func TestSplitRoute(t *testing.T) {
	tests := []struct {
		route    string
		from, to string
	}{
		{"Москва — Санкт-Петербург", "Москва", "Санкт-Петербург"},
		{"Москва – Казань", "Москва", "Казань"},
		{"Москва -> Омск", "Москва", "Омск"},
		{"Москва → Омск", "Москва", "Омск"},
		{"Москва - Омск", "Москва", "Омск"},
		{"Москва", "Москва", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		from, to := splitRoute(tt.route)
		assert.Equal(t, tt.from, from, "route %q", tt.route)
		assert.Equal(t, tt.to, to, "route %q", tt.route)
	}
}
