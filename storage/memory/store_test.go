package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/storage"
	"github.com/google/uuid"
)

func sampleEvent(title string, start time.Time) calendar.Event {
	return calendar.New(title, start, start.Add(time.Hour))
}

func TestStore_Event(t *testing.T) {
	store := New()
	ctx := context.Background()

	ev := sampleEvent("Dentist", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	ev.RecurrenceExceptions = []time.Time{time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}

	// Test getting non-existent event
	_, err := store.GetEvent(ctx, ev.ID)
	if err == nil {
		t.Error("expected error getting non-existent event")
	} else if err.(*storage.Error).Type != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Test creating event
	if err := store.CreateEvent(ctx, ev); err != nil {
		t.Errorf("unexpected error creating event: %v", err)
	}

	// Test creating duplicate event
	if err := store.CreateEvent(ctx, ev); err == nil {
		t.Error("expected error creating duplicate event")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Test getting event
	got, err := store.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Errorf("unexpected error getting event: %v", err)
	}
	if got.Title != ev.Title || !got.Start.Equal(ev.Start) {
		t.Errorf("got event %+v, want %+v", got, ev)
	}

	// Mutating a returned copy must not change the store
	got.RecurrenceExceptions[0] = time.Time{}
	again, _ := store.GetEvent(ctx, ev.ID)
	if again.RecurrenceExceptions[0].IsZero() {
		t.Error("store shares exception slice with callers")
	}

	// Test updating event
	ev.Title = "Dentist (moved)"
	if err := store.UpdateEvent(ctx, ev); err != nil {
		t.Errorf("unexpected error updating event: %v", err)
	}
	got, _ = store.GetEvent(ctx, ev.ID)
	if got.Title != "Dentist (moved)" {
		t.Errorf("got title %q after update", got.Title)
	}

	// Test updating non-existent event
	other := sampleEvent("Other", ev.Start)
	if err := store.UpdateEvent(ctx, other); !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Test deleting event
	if err := store.DeleteEvent(ctx, ev.ID); err != nil {
		t.Errorf("unexpected error deleting event: %v", err)
	}
	if err := store.DeleteEvent(ctx, ev.ID); !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestStore_Validation(t *testing.T) {
	store := New()
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   calendar.Event
	}{
		{"missing ID", calendar.Event{Title: "x", Start: start, End: start}},
		{"missing start", calendar.Event{ID: uuid.New(), Title: "x"}},
		{"inverted", calendar.Event{ID: uuid.New(), Title: "x", Start: start, End: start.Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateEvent(ctx, tt.ev)
			if !storage.IsType(err, storage.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestStore_ListEvents(t *testing.T) {
	ctx := context.Background()
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }

	late := sampleEvent("Late", day(20, 9))
	early := sampleEvent("Early", day(1, 9))
	sameStartB := sampleEvent("B", day(10, 9))
	sameStartA := sampleEvent("A", day(10, 9))
	sameStartA.Category = "Work"
	series := sampleEvent("Weekly", day(1, 12))
	series.RecurrenceRule = "FREQ=WEEKLY"

	store := New(late, early, sameStartB, sameStartA, series)

	all, err := store.ListEvents(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error listing events: %v", err)
	}
	var titles []string
	for _, ev := range all {
		titles = append(titles, ev.Title)
	}
	want := []string{"Early", "Weekly", "A", "B", "Late"}
	if len(titles) != len(want) {
		t.Fatalf("got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, titles[i], want[i])
		}
	}

	// One-off events must overlap the range; the series started before it.
	from, to := day(9, 0), day(15, 0)
	ranged, _ := store.ListEvents(ctx, &storage.ListOptions{Start: &from, End: &to})
	if len(ranged) != 3 {
		t.Errorf("got %d events in range, want 3", len(ranged))
	}

	work, _ := store.ListEvents(ctx, &storage.ListOptions{Category: "Work"})
	if len(work) != 1 || work[0].Title != "A" {
		t.Errorf("got %+v for category filter", work)
	}
}

func TestNew_SkipsInvalidSeed(t *testing.T) {
	valid := sampleEvent("ok", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store := New(valid, calendar.Event{Title: "no id"}, valid)

	events, _ := store.ListEvents(context.Background(), nil)
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}
