package tracking

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Genitive month names as they appear on the carrier's Russian tracking page
var ruMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// The day group must not follow a digit or separator, or a year-first date
// like "2024-03-05" would match from inside its own year.
var (
	numericDateRe = regexp.MustCompile(`(?:^|[^\d./-])(\d{1,2})[./-](\d{1,2})(?:[./-](\d{4}))?`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// ParseEventDate parses the date formats seen on carrier pages:
// "05.03.2024" (also "-" and "/" separators), "05.03" with the year
// defaulting to the current UTC year, and the Russian long form
// "5 марта 2024". Unparseable input yields nil rather than an error;
// a missing date never aborts timeline parsing.
func ParseEventDate(text string, now time.Time) *time.Time {
	text = strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(text, " ")))
	if text == "" {
		return nil
	}

	if t := parseRussianLongDate(text, now); t != nil {
		return t
	}

	// Mined payloads sometimes carry a bare ISO date with no time part.
	if t, err := time.Parse("2006-01-02", text); err == nil {
		t = t.UTC()
		return &t
	}

	m := numericDateRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.UTC().Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return makeDate(year, month, day)
}

// parseRussianLongDate handles "<day> <month-name> [<year>]"
func parseRussianLongDate(text string, now time.Time) *time.Time {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	day, err := strconv.Atoi(strings.TrimSuffix(fields[0], ","))
	if err != nil {
		return nil
	}
	month, ok := ruMonths[strings.Trim(fields[1], ",.")]
	if !ok {
		return nil
	}
	year := now.UTC().Year()
	if len(fields) >= 3 {
		if y, err := strconv.Atoi(strings.Trim(fields[2], ",.")); err == nil && y > 1000 {
			year = y
		}
	}
	return makeDate(year, int(month), day)
}

func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 31.02 -> 02.03
	if t.Day() != day || int(t.Month()) != month {
		return nil
	}
	return &t
}
