package tracking

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Ranked CSS selector fallbacks per semantic field. Carrier markup changes
// between releases; when it does, append a new selector rather than swapping
// the list, so older page revisions keep working.
var (
	orderNumberSelectors = []string{
		"[data-testid='order-number']",
		".order-number",
		".tracking-header__number",
		"h1 .number",
	}
	routeSelectors = []string{
		"[data-testid='route']",
		".order-route",
		".tracking-header__route",
		".route",
	}
	statusSelectors = []string{
		"[data-testid='order-status']",
		".order-status__title",
		".tracking-status__current",
		".status-current",
	}
	citySelectors = []string{
		"[data-testid='current-city']",
		".order-status__city",
		".tracking-status__city",
	}
	timelineSelectors = []string{
		"[data-testid='timeline']",
		".order-timeline",
		".tracking-timeline",
		".statuses-list",
		"ul.timeline",
	}
	timelineItemSelectors = []string{
		"[data-testid='timeline-item']",
		".order-timeline__item",
		".tracking-timeline__step",
		".statuses-list__item",
		"li",
	}
	itemTitleSelectors = []string{
		"[data-testid='timeline-title']",
		".order-timeline__title",
		".tracking-timeline__label",
		".title",
		"b",
	}
	itemDateSelectors = []string{
		"[data-testid='timeline-date']",
		".order-timeline__date",
		".tracking-timeline__date",
		".date",
		"time",
	}
	itemCitySelectors = []string{
		"[data-testid='timeline-city']",
		".order-timeline__city",
		".tracking-timeline__city",
		".city",
	}
	activeMarkerSelectors = []string{
		".order-timeline__item--active",
		".tracking-timeline__step_current",
		".is-active",
	}
)

// ScrapeDocument extracts a status record from rendered tracking-page HTML.
// Returns nil when no timeline items can be located, which callers report as
// a layout change rather than a load failure.
func ScrapeDocument(doc *goquery.Document, trackNumber string, now time.Time) *StatusRecord {
	events, activeIdx := scrapeTimeline(doc, now)
	if len(events) == 0 {
		return nil
	}

	fromCity, toCity := splitRoute(firstText(doc.Selection, routeSelectors))
	fields := RawFields{
		TrackNumber: trackNumber,
		OrderNumber: firstText(doc.Selection, orderNumberSelectors),
		Status:      firstText(doc.Selection, statusSelectors),
		CurrentCity: firstText(doc.Selection, citySelectors),
		FromCity:    fromCity,
		ToCity:      toCity,
		ActiveIndex: activeIdx,
	}
	return Normalize(events, fields, now)
}

func scrapeTimeline(doc *goquery.Document, now time.Time) ([]StatusEvent, int) {
	container := firstMatch(doc.Selection, timelineSelectors)
	if container == nil {
		return nil, -1
	}

	items := firstMatch(container, timelineItemSelectors)
	if items == nil {
		return nil, -1
	}

	var events []StatusEvent
	activeIdx := -1
	items.Each(func(_ int, node *goquery.Selection) {
		ev := StatusEvent{
			Title: firstText(node, itemTitleSelectors),
			City:  firstText(node, itemCitySelectors),
		}
		if raw := firstText(node, itemDateSelectors); raw != "" {
			ev.Date = ParseEventDate(raw, now)
		}
		if ev.Title == "" && ev.Date == nil && ev.City == "" {
			return
		}
		if isActiveNode(node) {
			activeIdx = len(events)
		}
		events = append(events, ev)
	})
	return events, activeIdx
}

// isActiveNode reports whether a timeline node is flagged as the current
// step: a class containing "active" or "current", a truthy active/state data
// attribute, aria-current="step", or a nested element matching one of the
// active marker selectors.
func isActiveNode(node *goquery.Selection) bool {
	if class, ok := node.Attr("class"); ok {
		lc := strings.ToLower(class)
		if strings.Contains(lc, "active") || strings.Contains(lc, "current") {
			return true
		}
	}
	for _, attr := range []string{"data-active", "data-current", "data-state"} {
		if v, ok := node.Attr(attr); ok && truthyAttr(v) {
			return true
		}
	}
	if v, ok := node.Attr("aria-current"); ok && strings.EqualFold(v, "step") {
		return true
	}
	for _, sel := range activeMarkerSelectors {
		if node.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func truthyAttr(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no", "off", "inactive", "done", "past":
		return false
	}
	return true
}

// firstMatch probes the selector list in order and returns the first
// non-empty selection, or nil.
func firstMatch(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// firstText probes the selector list in order and returns the first
// non-empty trimmed text.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := collapseSpaces(root.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// splitRoute breaks a "Москва — Санкт-Петербург" style route label into
// origin and destination. Single-city routes land in the origin slot.
func splitRoute(route string) (string, string) {
	if route == "" {
		return "", ""
	}
	for _, sep := range []string{"—", "–", "->", "→", " - "} {
		if strings.Contains(route, sep) {
			parts := strings.SplitN(route, sep, 2)
			return collapseSpaces(parts[0]), collapseSpaces(parts[1])
		}
	}
	return collapseSpaces(route), ""
}
