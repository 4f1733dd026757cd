// Package sqlite stores events in a SQLite database through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/storage"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Store implements storage.Storage on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the database at dsn (a file path or ":memory:") and
// applies pending migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database
	// alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("opened event database", "dsn", dsn)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectEvents = `
SELECT
	id, title, start_datetime, end_datetime, is_all_day, category,
	location, notes, recurrence_rule, recurrence_exceptions
FROM events`

func (s *Store) ListEvents(ctx context.Context, opts *storage.ListOptions) ([]calendar.Event, error) {
	where, args := []string{"1 = 1"}, []any{}
	if opts != nil {
		if opts.Category != "" {
			where, args = append(where, "category = ?"), append(args, opts.Category)
		}
		// Second granularity is a superset of the exact filter applied below.
		if opts.End != nil {
			where, args = append(where, "start_ts <= ?"), append(args, opts.End.Unix())
		}
		if opts.Start != nil {
			where, args = append(where, "(recurrence_rule IS NOT NULL OR end_ts >= ?)"), append(args, opts.Start.Unix())
		}
	}

	query := selectEvents + " WHERE " + strings.Join(where, " AND ") + " ORDER BY start_ts ASC, title ASC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []calendar.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if opts.Matches(ev) {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	storage.SortEvents(events)
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (calendar.Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+" WHERE id = ?", id.String())
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return calendar.Event{}, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}
	if err != nil {
		return calendar.Event{}, err
	}
	return ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev calendar.Event) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}
	exceptions, err := encodeExceptions(ev.RecurrenceExceptions)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM events WHERE id = ?", ev.ID.String()).Scan(&count); err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if count > 0 {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event already exists",
		}
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO events (
	id, title, start_datetime, end_datetime, start_ts, end_ts, is_all_day,
	category, location, notes, recurrence_rule, recurrence_exceptions,
	created_utc, updated_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), ev.Title,
		ev.Start.Format(time.RFC3339Nano), ev.End.Format(time.RFC3339Nano),
		ev.Start.Unix(), ev.End.Unix(), ev.AllDay,
		category(ev.Category), nullable(ev.Location), nullable(ev.Notes), nullable(ev.RecurrenceRule),
		exceptions, now, now,
	); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	s.logger.Debug("created event", "id", ev.ID, "title", ev.Title)
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev calendar.Event) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}
	exceptions, err := encodeExceptions(ev.RecurrenceExceptions)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE events SET
	title = ?, start_datetime = ?, end_datetime = ?, start_ts = ?, end_ts = ?,
	is_all_day = ?, category = ?, location = ?, notes = ?,
	recurrence_rule = ?, recurrence_exceptions = ?, updated_utc = ?
WHERE id = ?`,
		ev.Title,
		ev.Start.Format(time.RFC3339Nano), ev.End.Format(time.RFC3339Nano),
		ev.Start.Unix(), ev.End.Unix(), ev.AllDay,
		category(ev.Category), nullable(ev.Location), nullable(ev.Notes), nullable(ev.RecurrenceRule),
		exceptions, s.now().UTC().Format(time.RFC3339Nano),
		ev.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectOneRow(res)
}

// Backup writes a consistent copy of the database to path, replacing any
// existing file.
func (s *Store) Backup(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "backup path is required"}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace backup: %w", err)
	}

	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	s.logger.Info("database backed up", "path", path)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (calendar.Event, error) {
	var (
		id, title, start, end, cat, exceptions string
		location, notes, rule                 sql.NullString
		allDay                                bool
	)
	if err := row.Scan(&id, &title, &start, &end, &allDay, &cat, &location, &notes, &rule, &exceptions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.Event{}, err
		}
		return calendar.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	ev := calendar.Event{
		Title:          title,
		AllDay:         allDay,
		Category:       cat,
		Location:       location.String,
		Notes:          notes.String,
		RecurrenceRule: rule.String,
	}

	var err error
	if ev.ID, err = uuid.Parse(id); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	if ev.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid start for event %s: %w", id, err)
	}
	if ev.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid end for event %s: %w", id, err)
	}
	if ev.RecurrenceExceptions, err = decodeExceptions(exceptions); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid exceptions for event %s: %w", id, err)
	}
	return ev, nil
}

func encodeExceptions(times []time.Time) (string, error) {
	values := make([]string, len(times))
	for i, t := range times {
		values[i] = t.Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode exceptions: %w", err)
	}
	return string(data), nil
}

func decodeExceptions(raw string) ([]time.Time, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func category(c string) string {
	if strings.TrimSpace(c) == "" {
		return calendar.DefaultCategory
	}
	return c
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}
	return nil
}
