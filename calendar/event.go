// Package calendar holds the event entity shared by the recurrence engine,
// the interchange codec and the storage backends.
package calendar

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to events that arrive without a category.
const DefaultCategory = "General"

// Event is a single calendar entry. A non-blank RecurrenceRule turns it into
// a recurring series anchored at Start.
type Event struct {
	ID       uuid.UUID
	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Category string
	Location string
	Notes    string

	// RecurrenceRule is the raw KEY=value;KEY=value rule string
	// (without the "RRULE:" prefix). Blank means the event does not repeat.
	RecurrenceRule string
	// RecurrenceExceptions suppress generated occurrences, either by exact
	// instant or by calendar date.
	RecurrenceExceptions []time.Time
}

// New returns an event with a fresh identifier and the default category.
func New(title string, start, end time.Time) Event {
	return Event{
		ID:       uuid.New(),
		Title:    title,
		Start:    start,
		End:      end,
		Category: DefaultCategory,
	}
}

// Duration is the length of one occurrence. Inverted ranges yield zero.
func (e Event) Duration() time.Duration {
	if e.End.Before(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

// IsRecurring reports whether the event carries a rule string.
func (e Event) IsRecurring() bool {
	return strings.TrimSpace(e.RecurrenceRule) != ""
}

// IsMultiDay reports whether the event ends on a later calendar date than it starts.
func (e Event) IsMultiDay() bool {
	sy, sm, sd := e.Start.Date()
	ey, em, ed := e.End.Date()
	return time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).After(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC))
}

// Fingerprint identifies an event by title and instants, independent of the
// offset the instants were recorded in. Imports use it to skip duplicates.
func (e Event) Fingerprint() string {
	return strings.ToLower(e.Title) + "|" +
		e.Start.UTC().Format(time.RFC3339Nano) + "|" +
		e.End.UTC().Format(time.RFC3339Nano)
}

// Clone returns a copy that shares no slices with e.
func (e Event) Clone() Event {
	out := e
	if e.RecurrenceExceptions != nil {
		out.RecurrenceExceptions = append([]time.Time(nil), e.RecurrenceExceptions...)
	}
	return out
}
