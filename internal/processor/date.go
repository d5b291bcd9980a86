package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
var slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
var monthNameDateRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)
var dayMonthNameDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var datePrefixStripRe = regexp.MustCompile(`(?i)^(?:deadline|due date|closing date|applications? close|due)\s*[:\-]?\s*`)

// ParseDate attempts a fixed sequence of formats — ISO-8601, then M/D/YYYY
// (US-first, per spec.md §4.3), then "Month D, YYYY", then "D Month YYYY" —
// returning the first successful parse. Grounded on the teacher's
// parseDateRobust/parseDateWithRegex attempt-in-order structure.
func ParseDate(text string) (time.Time, bool) {
	cleaned := datePrefixStripRe.ReplaceAllString(strings.TrimSpace(text), "")

	if m := isoDateRe.FindStringSubmatch(cleaned); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t, true
		}
	}

	if m := slashDateRe.FindStringSubmatch(cleaned); m != nil {
		if t, ok := parseSlashDateUSFirst(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	if m := monthNameDateRe.FindStringSubmatch(cleaned); m != nil {
		if t, ok := buildDate(m[3], m[1], m[2]); ok {
			return t, true
		}
	}

	if m := dayMonthNameDateRe.FindStringSubmatch(cleaned); m != nil {
		if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseSlashDateUSFirst tries M/D/YYYY first; if the month component is out
// of range (>12) it falls back to D/M/YYYY, per spec.md's ambiguity rule.
func parseSlashDateUSFirst(a, b, year string) (time.Time, bool) {
	if t, err := time.Parse("1/2/2006", a+"/"+b+"/"+year); err == nil {
		return t, true
	}
	if t, err := time.Parse("2/1/2006", a+"/"+b+"/"+year); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func buildDate(year, monthName, day string) (time.Time, bool) {
	month, ok := monthsByName[strings.ToLower(monthName)]
	if !ok {
		return time.Time{}, false
	}
	day = strings.TrimSpace(day)
	t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%d-%s", year, int(month), day))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndOfDay returns t advanced to 23:59:59 the same calendar day, matching
// the teacher's toEndOfDay so a bare date is treated as inclusive.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
