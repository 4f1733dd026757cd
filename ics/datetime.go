package ics

import (
	"strings"
	"time"

	"github.com/samber/mo"
)

const basicUTCLayout = "20060102T150405Z"

// Exact forms first, then the generic fallbacks. Values without an offset
// are taken as UTC.
var dateTimeLayouts = []string{
	basicUTCLayout,
	"20060102T150405",
	"20060102",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatDateTime renders t in UTC basic form, e.g. 20260214T230000Z.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(basicUTCLayout)
}

// ParseDateTime accepts basic UTC, basic local and bare-date values, plus a
// few extended ISO 8601 forms.
func ParseDateTime(raw string) mo.Result[time.Time] {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return mo.Ok(t)
		}
	}
	return mo.Err[time.Time](&time.ParseError{Value: raw, Message: ": not an iCalendar date or date-time"})
}

// isDateOnly reports whether raw is the 8-character bare-date form.
func isDateOnly(raw string) bool {
	return len(strings.TrimSpace(raw)) == 8
}
