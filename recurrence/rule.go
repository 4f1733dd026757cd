package recurrence

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var weekdayNames = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Layouts accepted for UNTIL, tried in order. Layouts without a zone are
// read in the location of the series start.
var untilLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"20060102T150405Z0700", true},
	{"20060102T150405Z", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"20060102T150405", false},
	{"2006-01-02", false},
	{"20060102", false},
}

// ParseComponents splits a rule string on ';' and each part on its first '='.
// Blank parts and parts without '=' are skipped; keys are uppercased.
func ParseComponents(s string) Components {
	out := make(Components)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// ParseRule turns a rule string into a Rule. It returns None when the string
// is blank or carries no FREQ, which callers treat as a non-recurring event.
// Malformed INTERVAL, COUNT or UNTIL values are treated as absent.
// loc is used for UNTIL values that carry no offset; nil means UTC.
func ParseRule(s string, loc *time.Location) mo.Option[Rule] {
	if strings.TrimSpace(s) == "" {
		return mo.None[Rule]()
	}
	comps := ParseComponents(s)
	freq, ok := comps["FREQ"]
	if !ok || freq == "" {
		return mo.None[Rule]()
	}
	if loc == nil {
		loc = time.UTC
	}

	bounds := Bounds{
		Interval: positiveInt(comps, "INTERVAL").OrElse(1),
		Count:    positiveInt(comps, "COUNT"),
		Until:    parseUntil(comps, loc),
		Extra:    make(Components),
	}
	for key, value := range comps {
		if !knownComponent(key) {
			bounds.Extra[key] = value
		}
	}

	switch Frequency(strings.ToUpper(freq)) {
	case Weekly:
		wkst := time.Monday
		if d, ok := weekdayCodes[strings.ToUpper(comps["WKST"])]; ok {
			wkst = d
		}
		return mo.Some[Rule](WeeklyRule{
			Bounds:    bounds,
			ByDay:     parseByDay(comps["BYDAY"], wkst),
			WeekStart: wkst,
		})
	case Monthly:
		return mo.Some[Rule](MonthlyRule{
			Bounds:     bounds,
			ByMonthDay: parseMonthDays(comps["BYMONTHDAY"]),
		})
	case Yearly:
		return mo.Some[Rule](YearlyRule{Bounds: bounds})
	default:
		return mo.Some[Rule](DailyRule{Bounds: bounds})
	}
}

func knownComponent(key string) bool {
	switch key {
	case "FREQ", "INTERVAL", "COUNT", "UNTIL", "BYDAY", "BYMONTHDAY", "WKST":
		return true
	}
	return false
}

// positiveInt reads key as an integer > 0. Anything else is None.
func positiveInt(comps Components, key string) mo.Option[int] {
	raw, ok := comps[key]
	if !ok {
		return mo.None[int]()
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return mo.None[int]()
	}
	return mo.Some(n)
}

func parseUntil(comps Components, loc *time.Location) mo.Option[time.Time] {
	raw, ok := comps["UNTIL"]
	if !ok {
		return mo.None[time.Time]()
	}
	t, err := ParseDateTime(raw, loc).Get()
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(t)
}

// ParseDateTime is the lenient date/time parser used for UNTIL. Values
// without an offset are read in loc.
func ParseDateTime(raw string, loc *time.Location) mo.Result[time.Time] {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range untilLayouts {
		var (
			t   time.Time
			err error
		)
		switch {
		case l.zoned:
			t, err = time.Parse(l.layout, raw)
		case strings.HasSuffix(l.layout, "Z"):
			t, err = time.ParseInLocation(l.layout, raw, time.UTC)
		default:
			t, err = time.ParseInLocation(l.layout, raw, loc)
		}
		if err == nil {
			return mo.Ok(t)
		}
	}
	return mo.Err[time.Time](&time.ParseError{Value: raw, Message: ": unrecognized date/time"})
}

// parseByDay keeps the last two characters of each token so ordinal
// prefixes such as "1MO" or "-1FR" are tolerated. The result is ordered by
// position in a week starting at wkst.
func parseByDay(raw string, wkst time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if len(token) < 2 {
			continue
		}
		d, ok := weekdayCodes[strings.ToUpper(token[len(token)-2:])]
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return weekOffset(days[i], wkst) < weekOffset(days[j], wkst)
	})
	return days
}

func parseMonthDays(raw string) []int {
	var days []int
	for _, token := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || n == 0 || n < -31 || n > 31 {
			continue
		}
		days = append(days, n)
	}
	return days
}

// weekOffset is the 0-based position of d in a week that begins on wkst.
func weekOffset(d, wkst time.Weekday) int {
	return (int(d) - int(wkst) + 7) % 7
}

func (r DailyRule) String() string {
	return formatRule(Daily, r.Bounds, nil)
}

func (r WeeklyRule) String() string {
	var extra []string
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			codes[i] = weekdayNames[d]
		}
		extra = append(extra, "BYDAY="+strings.Join(codes, ","))
	}
	if r.WeekStart != time.Monday {
		extra = append(extra, "WKST="+weekdayNames[r.WeekStart])
	}
	return formatRule(Weekly, r.Bounds, extra)
}

func (r MonthlyRule) String() string {
	var extra []string
	if len(r.ByMonthDay) > 0 {
		extra = append(extra, "BYMONTHDAY="+joinInts(r.ByMonthDay))
	}
	return formatRule(Monthly, r.Bounds, extra)
}

func (r YearlyRule) String() string {
	return formatRule(Yearly, r.Bounds, nil)
}

func formatRule(freq Frequency, b Bounds, extra []string) string {
	parts := []string{"FREQ=" + string(freq)}
	if b.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(b.Interval))
	}
	if n, ok := b.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(n))
	}
	if t, ok := b.Until.Get(); ok {
		parts = append(parts, "UNTIL="+formatUntil(t))
	}
	parts = append(parts, extra...)

	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+b.Extra[k])
	}
	return strings.Join(parts, ";")
}

// formatUntil writes midnight values as a bare date, the form the rule
// builder produces; anything else as an RFC 5545 UTC timestamp.
func formatUntil(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.UTC().Format("20060102T150405Z")
}

func joinInts(nums []int) string {
	strs := make([]string, len(nums))
	for i, n := range nums {
		strs[i] = strconv.Itoa(n)
	}
	return strings.Join(strs, ",")
}
