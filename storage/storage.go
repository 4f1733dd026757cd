// Package storage defines how events are persisted. See the memory and
// sqlite subpackages for implementations.
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/google/uuid"
)

// Storage persists events. Implementations must be safe for concurrent use
// and return *Error for not-found, duplicate and invalid input cases.
type Storage interface {
	// ListEvents returns events ordered by start, then title. A nil opts
	// lists everything.
	ListEvents(ctx context.Context, opts *ListOptions) ([]calendar.Event, error)
	// GetEvent finds an event by ID.
	GetEvent(ctx context.Context, id uuid.UUID) (calendar.Event, error)
	// CreateEvent stores a new event. The ID must be set and unused.
	CreateEvent(ctx context.Context, ev calendar.Event) error
	// UpdateEvent replaces an existing event.
	UpdateEvent(ctx context.Context, ev calendar.Event) error
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// ListOptions narrows ListEvents.
type ListOptions struct {
	// Time range filter. A one-off event matches when it overlaps
	// [Start, End]; a recurring event matches when its series starts at or
	// before End, since occurrences are only known after expansion.
	Start *time.Time
	End   *time.Time

	// Category, when set, must match exactly.
	Category string
}

// Matches reports whether ev passes the filter.
func (o *ListOptions) Matches(ev calendar.Event) bool {
	if o == nil {
		return true
	}
	if o.Category != "" && ev.Category != o.Category {
		return false
	}
	if o.End != nil && ev.Start.After(*o.End) {
		return false
	}
	if o.Start != nil && !ev.IsRecurring() && ev.End.Before(*o.Start) {
		return false
	}
	return true
}

// Validate checks the invariants every implementation enforces on write.
func Validate(ev calendar.Event) error {
	if ev.ID == uuid.Nil {
		return &Error{Type: ErrInvalidInput, Message: "event ID is required"}
	}
	if ev.Start.IsZero() {
		return &Error{Type: ErrInvalidInput, Message: "event start is required"}
	}
	if ev.End.Before(ev.Start) {
		return &Error{Type: ErrInvalidInput, Message: "event ends before it starts"}
	}
	return nil
}

// SortEvents orders events by start, then title.
func SortEvents(events []calendar.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Title < events[j].Title
	})
}
