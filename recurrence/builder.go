package recurrence

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Builder assembles a rule string from editor-style choices.
type Builder struct {
	// Frequency is one of "none", "daily", "weekly", "monthly", "yearly",
	// case-insensitive. Blank means none.
	Frequency string
	Interval  int
	// Count wins over Until when positive.
	Count int
	Until mo.Option[time.Time]
	// ByDay is only written for weekly rules.
	ByDay []time.Weekday
	// ByMonthDay is only written for monthly rules; values outside 1..31
	// are dropped.
	ByMonthDay []int
}

// Build returns the rule string, or None when the frequency is none.
func (b Builder) Build() mo.Option[string] {
	freq := strings.ToUpper(strings.TrimSpace(b.Frequency))
	if freq == "" || freq == "NONE" {
		return mo.None[string]()
	}

	parts := []string{"FREQ=" + freq}
	if b.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(b.Interval))
	}
	if b.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(b.Count))
	} else if until, ok := b.Until.Get(); ok {
		parts = append(parts, "UNTIL="+until.Format("2006-01-02"))
	}

	switch Frequency(freq) {
	case Weekly:
		if days := b.byDayToken(); days != "" {
			parts = append(parts, "BYDAY="+days)
		}
	case Monthly:
		if days := b.byMonthDayToken(); days != "" {
			parts = append(parts, "BYMONTHDAY="+days)
		}
	}

	return mo.Some(strings.Join(parts, ";"))
}

// byDayToken lists the selected weekdays Monday first.
func (b Builder) byDayToken() string {
	selected := make(map[time.Weekday]bool, len(b.ByDay))
	for _, d := range b.ByDay {
		selected[d] = true
	}
	var codes []string
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if selected[d] {
			codes = append(codes, weekdayNames[d])
		}
	}
	return strings.Join(codes, ",")
}

func (b Builder) byMonthDayToken() string {
	seen := make(map[int]bool)
	var days []int
	for _, d := range b.ByMonthDay {
		if d < 1 || d > 31 || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Ints(days)
	return joinInts(days)
}

// BuilderFromRule recovers editor choices from a rule string. Unparsable
// or FREQ-less rules give a Builder with Frequency "none".
func BuilderFromRule(s string, loc *time.Location) Builder {
	rule, ok := ParseRule(s, loc).Get()
	if !ok {
		return Builder{Frequency: "none", Interval: 1}
	}

	b := rule.Limits()
	out := Builder{
		Frequency: strings.ToLower(string(rule.Frequency())),
		Interval:  b.Interval,
		Count:     b.Count.OrElse(0),
		Until:     b.Until,
	}
	switch r := rule.(type) {
	case WeeklyRule:
		out.ByDay = append(out.ByDay, r.ByDay...)
	case MonthlyRule:
		out.ByMonthDay = append(out.ByMonthDay, r.ByMonthDay...)
	}
	return out
}

// ParseWeekday reads a two-letter day code such as "MO" or "su".
func ParseWeekday(code string) (time.Weekday, bool) {
	d, ok := weekdayCodes[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}
