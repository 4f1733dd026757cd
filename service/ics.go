package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/ics"
	"github.com/cyp0633/wincal/storage"
	"github.com/google/uuid"
)

// ImportResult summarizes an import.
type ImportResult struct {
	// Parsed is the number of events the codec recovered.
	Parsed int
	// Imported is the number actually stored; the rest were duplicates.
	Imported int
}

// ImportICS reads a calendar and stores every event that is not already
// present. Events are compared by calendar.Event.Fingerprint, both against
// the store and against earlier events of the same input.
func (s *Service) ImportICS(ctx context.Context, r io.Reader) (ImportResult, error) {
	parsed, err := ics.Decode(r)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := s.store.ListEvents(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to list events: %w", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(parsed))
	for _, ev := range existing {
		seen[ev.Fingerprint()] = struct{}{}
	}

	result := ImportResult{Parsed: len(parsed)}
	for _, ev := range parsed {
		key := ev.Fingerprint()
		if _, dup := seen[key]; dup {
			s.logger.Debug("skipping duplicate event", "title", ev.Title, "start", ev.Start)
			continue
		}
		seen[key] = struct{}{}

		if err := s.create(ctx, ev); err != nil {
			if storage.IsType(err, storage.ErrInvalidInput) {
				s.logger.Warn("skipping invalid event", "title", ev.Title, "error", err)
				continue
			}
			return result, err
		}
		result.Imported++
	}

	s.logger.Info("calendar imported", "parsed", result.Parsed, "imported", result.Imported)
	return result, nil
}

// create stores an imported event. A UID that collides with a different
// stored event is replaced so that both survive.
func (s *Service) create(ctx context.Context, ev calendar.Event) error {
	err := s.store.CreateEvent(ctx, ev)
	if storage.IsAlreadyExists(err) {
		old := ev.ID
		ev.ID = uuid.New()
		s.logger.Warn("imported UID already in use, assigning a new one", "uid", old, "id", ev.ID)
		err = s.store.CreateEvent(ctx, ev)
	}
	if err != nil {
		return fmt.Errorf("failed to import %q: %w", ev.Title, err)
	}
	return nil
}

// ImportFile imports the calendar file at path.
func (s *Service) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	if strings.TrimSpace(path) == "" {
		return ImportResult{}, fmt.Errorf("ICS file path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open ICS file: %w", err)
	}
	defer f.Close()

	return s.ImportICS(ctx, f)
}

// ExportICS writes every stored event as one calendar, ordered by start.
func (s *Service) ExportICS(ctx context.Context, w io.Writer) (int, error) {
	events, err := s.store.ListEvents(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}
	if err := ics.NewWriter(ics.WithClock(s.now)).Encode(w, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

// ExportFile exports to path, creating its directory if needed. An existing
// file is replaced.
func (s *Service) ExportFile(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("ICS file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create ICS file: %w", err)
	}
	n, err := s.ExportICS(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close ICS file: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	s.logger.Info("calendar exported", "path", path, "events", n)
	return n, nil
}
