// memory based implementation for testing purposes
package memory

import (
	"context"
	"sync"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage interface using an in-memory map
type Store struct {
	mu     sync.RWMutex
	events map[uuid.UUID]calendar.Event
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory storage, optionally seeded with events.
// Seed events that fail validation or repeat an ID are skipped.
func New(seed ...calendar.Event) *Store {
	s := &Store{events: make(map[uuid.UUID]calendar.Event)}
	for _, ev := range seed {
		if storage.Validate(ev) != nil {
			continue
		}
		if _, exists := s.events[ev.ID]; !exists {
			s.events[ev.ID] = ev.Clone()
		}
	}
	return s
}

func (s *Store) ListEvents(_ context.Context, opts *storage.ListOptions) ([]calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]calendar.Event, 0, len(s.events))
	for _, ev := range s.events {
		if opts.Matches(ev) {
			events = append(events, ev.Clone())
		}
	}
	storage.SortEvents(events)

	return events, nil
}

func (s *Store) GetEvent(_ context.Context, id uuid.UUID) (calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return calendar.Event{}, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	return ev.Clone(), nil
}

func (s *Store) CreateEvent(_ context.Context, ev calendar.Event) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event already exists",
		}
	}

	s.events[ev.ID] = ev.Clone()
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, ev calendar.Event) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	s.events[ev.ID] = ev.Clone()
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[id]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	delete(s.events, id)
	return nil
}
