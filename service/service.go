// Package service is the application layer of wincal. It combines a
// storage backend with the recurrence engine and the interchange codec.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/recurrence"
	"github.com/cyp0633/wincal/storage"
	"github.com/google/uuid"
)

// ErrBackupUnsupported is returned by Backup when the storage backend has
// no on-disk form.
var ErrBackupUnsupported = errors.New("storage backend does not support backups")

// Backuper is implemented by storage backends that can copy themselves to
// a file.
type Backuper interface {
	Backup(ctx context.Context, path string) error
}

// Service implements the calendar use cases.
type Service struct {
	store           storage.Storage
	engine          *recurrence.Engine
	logger          *slog.Logger
	now             func() time.Time
	defaultCategory string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine replaces the default uncached recurrence engine.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithClock sets the clock used for DTSTAMP and sample events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultCategory sets the category given to new events without one.
func WithDefaultCategory(category string) Option {
	return func(s *Service) {
		if strings.TrimSpace(category) != "" {
			s.defaultCategory = category
		}
	}
}

// New creates a service over store.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:           store,
		engine:          recurrence.NewEngine(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		defaultCategory: calendar.DefaultCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	Event calendar.Event
	Start time.Time
	End   time.Time
}

// Occurrences expands every stored event into [from, to]. Each occurrence
// lasts as long as its event. The result is ordered by start, then title.
func (s *Service) Occurrences(ctx context.Context, from, to time.Time) ([]Occurrence, error) {
	if from.After(to) {
		return []Occurrence{}, nil
	}

	events, err := s.store.ListEvents(ctx, &storage.ListOptions{Start: &from, End: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	out := []Occurrence{}
	for _, ev := range events {
		starts := s.engine.Occurrences(ev, from, to)
		if ev.IsRecurring() && len(starts) == s.engine.MaxOccurrences() {
			s.logger.Debug("occurrence cap reached", "event", ev.ID, "max", len(starts))
		}
		for _, start := range starts {
			out = append(out, Occurrence{Event: ev, Start: start, End: start.Add(ev.Duration())})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Event.Title < out[j].Event.Title
	})
	return out, nil
}

// AddEvent stores a new event. A missing ID is generated and a blank
// category replaced by the configured default.
func (s *Service) AddEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if strings.TrimSpace(ev.Category) == "" {
		ev.Category = s.defaultCategory
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return calendar.Event{}, fmt.Errorf("failed to add event: %w", err)
	}
	s.logger.Info("event added", "id", ev.ID, "title", ev.Title)
	return ev, nil
}

// DeleteEvent removes an event by ID.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	s.logger.Info("event deleted", "id", id)
	return nil
}

// Search returns the events whose title, category, location or notes
// contain query, ignoring case, ordered by start. A blank query returns
// every event.
func (s *Service) Search(ctx context.Context, query string) ([]calendar.Event, error) {
	events, err := s.store.ListEvents(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return events, nil
	}

	out := []calendar.Event{}
	for _, ev := range events {
		if matches(ev, query) {
			out = append(out, ev)
		}
	}
	storage.SortEvents(out)
	return out, nil
}

func matches(ev calendar.Event, query string) bool {
	for _, field := range []string{ev.Title, ev.Category, ev.Location, ev.Notes} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// SeedSampleEvents adds two example events for today when the store is
// empty. It reports how many events were added.
func (s *Service) SeedSampleEvents(ctx context.Context) (int, error) {
	existing, err := s.store.ListEvents(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	now := s.now()
	at := func(hour, minute int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	}

	samples := []calendar.Event{
		{ID: uuid.New(), Title: "Team stand-up", Start: at(9, 0), End: at(9, 30), Category: "Work"},
		{ID: uuid.New(), Title: "Body corporate reminder", Start: at(17, 0), End: at(18, 0), Category: "Admin"},
	}
	for _, ev := range samples {
		if err := s.store.CreateEvent(ctx, ev); err != nil {
			return 0, fmt.Errorf("failed to seed %q: %w", ev.Title, err)
		}
	}
	s.logger.Info("sample events seeded", "count", len(samples))
	return len(samples), nil
}

// Backup copies the database to path when the backend supports it.
func (s *Service) Backup(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("backup path is required")
	}
	b, ok := s.store.(Backuper)
	if !ok {
		return ErrBackupUnsupported
	}
	if err := b.Backup(ctx, path); err != nil {
		return fmt.Errorf("failed to back up to %s: %w", path, err)
	}
	s.logger.Info("backup written", "path", path)
	return nil
}
