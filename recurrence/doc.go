/*
Package recurrence expands a calendar event's recurrence rule into concrete
occurrence instants inside a query window.

Rules use a subset of the RFC 5545 RRULE grammar:

	FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR;COUNT=10

Supported components are FREQ (DAILY, WEEKLY, MONTHLY, YEARLY), INTERVAL,
COUNT, UNTIL, BYDAY, BYMONTHDAY and WKST. Unknown components are kept but
ignored. Malformed values never fail an expansion; they are treated as
absent, and a rule without FREQ makes the event non-recurring.

# Basic Usage

	ev := calendar.New("Stand-up", start, start.Add(15*time.Minute))
	ev.RecurrenceRule = "FREQ=DAILY;COUNT=3"

	occurrences := recurrence.Expand(ev, rangeStart, rangeEnd, recurrence.DefaultMaxOccurrences)

Expand is pure and safe for concurrent use. The maxOccurrences argument is
the termination guarantee: generation stops at the first of COUNT, UNTIL,
rangeEnd and the cap.

# Exceptions

An exception removes an occurrence when it is the same instant or falls on
the same calendar date, so callers may pass either a precise timestamp or a
bare date.

# Caching

Engine wraps Expand with an optional TTL cache for processes that render the
same windows repeatedly:

	engine := recurrence.NewEngineWithConfig(recurrence.CachedEngineConfig)
	defer engine.Close()
*/
package recurrence
