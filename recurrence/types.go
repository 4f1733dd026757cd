package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Frequency is the FREQ component of a rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Components is the raw KEY=value view of a rule string. Keys are uppercase.
type Components map[string]string

// Bounds are the components shared by every frequency.
type Bounds struct {
	// Interval is always >= 1.
	Interval int
	Count    mo.Option[int]
	Until    mo.Option[time.Time]
	// Extra holds components no strategy understands. They are kept so the
	// rule can be written back out unchanged in meaning.
	Extra Components
}

// Rule is a parsed recurrence rule. The set of implementations is closed:
// DailyRule, WeeklyRule, MonthlyRule and YearlyRule.
type Rule interface {
	Frequency() Frequency
	Limits() Bounds
	String() string

	// candidate returns the n-th candidate of the series anchored at start.
	// prev is the (n-1)-th candidate and is ignored when n == 0.
	candidate(start time.Time, n int, prev time.Time) time.Time
}

// DailyRule steps by Interval days. Unrecognized frequencies also map here.
type DailyRule struct {
	Bounds
}

// WeeklyRule fans out to ByDay inside each week and steps by Interval weeks.
type WeeklyRule struct {
	Bounds
	// ByDay is sorted by position in the week and free of duplicates.
	// Empty means the weekday of the series start.
	ByDay []time.Weekday
	// WeekStart is the first day of a week (WKST), Monday unless set.
	WeekStart time.Weekday
}

// MonthlyRule steps by Interval calendar months from the previous occurrence.
type MonthlyRule struct {
	Bounds
	// ByMonthDay is carried for serialization only; expansion keeps the
	// start's day of month.
	ByMonthDay []int
}

// YearlyRule steps by Interval calendar years from the previous occurrence.
type YearlyRule struct {
	Bounds
}

func (DailyRule) Frequency() Frequency   { return Daily }
func (WeeklyRule) Frequency() Frequency  { return Weekly }
func (MonthlyRule) Frequency() Frequency { return Monthly }
func (YearlyRule) Frequency() Frequency  { return Yearly }

func (r DailyRule) Limits() Bounds   { return r.Bounds }
func (r WeeklyRule) Limits() Bounds  { return r.Bounds }
func (r MonthlyRule) Limits() Bounds { return r.Bounds }
func (r YearlyRule) Limits() Bounds  { return r.Bounds }
