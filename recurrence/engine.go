package recurrence

import (
	"time"

	"github.com/cyp0633/wincal/calendar"
)

// DefaultMaxOccurrences is the cap used by the Engine unless configured otherwise.
const DefaultMaxOccurrences = 250

// Engine provides recurrence expansion with an optional result cache.
// The zero value is not usable; create one with NewEngine or
// NewEngineWithConfig.
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
}

// NewEngine creates a new recurrence engine instance without caching.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// MaxOccurrences is the configured per-event cap.
func (e *Engine) MaxOccurrences() int {
	return e.config.MaxOccurrences
}

// Expand is the cached form of the package-level Expand.
func (e *Engine) Expand(ev calendar.Event, rangeStart, rangeEnd time.Time, maxOccurrences int) []time.Time {
	if e.cache == nil {
		return Expand(ev, rangeStart, rangeEnd, maxOccurrences)
	}
	if cached, ok := e.cache.Get(ev, rangeStart, rangeEnd, maxOccurrences); ok {
		return cached
	}
	out := Expand(ev, rangeStart, rangeEnd, maxOccurrences)
	e.cache.Set(ev, rangeStart, rangeEnd, maxOccurrences, out)
	return out
}

// Occurrences expands ev with the configured cap.
func (e *Engine) Occurrences(ev calendar.Event, rangeStart, rangeEnd time.Time) []time.Time {
	return e.Expand(ev, rangeStart, rangeEnd, e.config.MaxOccurrences)
}

// HasOccurrenceInRange reports whether at least one occurrence of ev
// survives range and exception filtering.
func (e *Engine) HasOccurrenceInRange(ev calendar.Event, rangeStart, rangeEnd time.Time) bool {
	return len(e.Occurrences(ev, rangeStart, rangeEnd)) > 0
}

// Close stops the cache cleanup goroutine, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Expand returns the occurrences of ev inside [rangeStart, rangeEnd],
// ascending and free of duplicates, with exceptions removed. It never fails:
// an inverted range or a non-positive cap yields an empty result, and a
// blank or FREQ-less rule makes the event non-recurring.
//
// Generation stops at the first of COUNT, UNTIL, rangeEnd or
// maxOccurrences, so the result is bounded for every input.
func Expand(ev calendar.Event, rangeStart, rangeEnd time.Time, maxOccurrences int) []time.Time {
	if rangeStart.After(rangeEnd) || maxOccurrences <= 0 {
		return []time.Time{}
	}

	var occurrences []time.Time
	if rule, ok := ParseRule(ev.RecurrenceRule, ev.Start.Location()).Get(); ok {
		occurrences = generate(ev.Start, rule, rangeStart, rangeEnd, maxOccurrences)
	} else if inRange(ev.Start, rangeStart, rangeEnd) {
		occurrences = []time.Time{ev.Start}
	}

	return filterExceptions(occurrences, ev.RecurrenceExceptions)
}

// generate is the single driver shared by every strategy. Candidates are
// counted towards COUNT whether or not they fall inside the range.
func generate(start time.Time, rule Rule, rangeStart, rangeEnd time.Time, maxOccurrences int) []time.Time {
	b := rule.Limits()
	count, hasCount := b.Count.Get()
	until, hasUntil := b.Until.Get()

	var (
		out  []time.Time
		prev time.Time
	)
	for n := 0; len(out) < maxOccurrences; n++ {
		if hasCount && n >= count {
			break
		}
		c := rule.candidate(start, n, prev)
		// A strategy that stops advancing (calendar overflow) ends the series.
		if n > 0 && !c.After(prev) {
			break
		}
		if hasUntil && c.After(until) {
			break
		}
		if c.After(rangeEnd) {
			break
		}
		if !c.Before(rangeStart) {
			out = append(out, c)
		}
		prev = c
	}
	return out
}

func (r DailyRule) candidate(start time.Time, n int, _ time.Time) time.Time {
	return start.AddDate(0, 0, n*r.Interval)
}

// Months and years step from the previous candidate. A day that does not
// exist in the target month rolls over into the next one, and the series
// carries on from the rolled-over date.
func (r MonthlyRule) candidate(start time.Time, n int, prev time.Time) time.Time {
	if n == 0 {
		return start
	}
	return prev.AddDate(0, r.Interval, 0)
}

func (r YearlyRule) candidate(start time.Time, n int, prev time.Time) time.Time {
	if n == 0 {
		return start
	}
	return prev.AddDate(r.Interval, 0, 0)
}

func (r WeeklyRule) candidate(start time.Time, n int, prev time.Time) time.Time {
	days := r.ByDay
	if len(days) == 0 {
		days = []time.Weekday{start.Weekday()}
	}
	if n > 0 {
		return r.advance(prev, days)
	}

	// First target of the start's week, then forward until not before start.
	c := start.AddDate(0, 0, weekOffset(days[0], r.WeekStart)-weekOffset(start.Weekday(), r.WeekStart))
	for c.Before(start) {
		c = r.advance(c, days)
	}
	return c
}

// advance moves to the next target weekday in prev's week, or to the first
// target of the week Interval weeks later. Time of day is kept.
func (r WeeklyRule) advance(prev time.Time, days []time.Weekday) time.Time {
	pos := weekOffset(prev.Weekday(), r.WeekStart)
	for _, d := range days {
		if off := weekOffset(d, r.WeekStart); off > pos {
			return prev.AddDate(0, 0, off-pos)
		}
	}
	weekStart := prev.AddDate(0, 0, -pos)
	return weekStart.AddDate(0, 0, 7*r.Interval+weekOffset(days[0], r.WeekStart))
}

func inRange(t, rangeStart, rangeEnd time.Time) bool {
	return !t.Before(rangeStart) && !t.After(rangeEnd)
}

// filterExceptions drops every occurrence that matches an exception either
// as the same instant or on the same calendar date. Each side's date is
// taken in its own location.
func filterExceptions(occurrences, exceptions []time.Time) []time.Time {
	out := make([]time.Time, 0, len(occurrences))
	for _, occ := range occurrences {
		if !isExcluded(occ, exceptions) {
			out = append(out, occ)
		}
	}
	return out
}

func isExcluded(t time.Time, exceptions []time.Time) bool {
	for _, ex := range exceptions {
		if t.Equal(ex) || sameDate(t, ex) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
