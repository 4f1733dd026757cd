package sqlite

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	id  string
	sql string
}

// Migrations are applied in order, each once, inside its own transaction.
var migrations = []migration{
	{
		id: "001_events",
		sql: `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	start_datetime TEXT NOT NULL,
	end_datetime TEXT NOT NULL,
	start_ts INTEGER NOT NULL,
	end_ts INTEGER NOT NULL,
	is_all_day INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT 'General',
	location TEXT NULL,
	notes TEXT NULL,
	recurrence_rule TEXT NULL,
	recurrence_exceptions TEXT NOT NULL DEFAULT '[]',
	created_utc TEXT NOT NULL,
	updated_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_start_ts ON events(start_ts);
CREATE INDEX IF NOT EXISTS idx_events_end_ts ON events(end_ts);
CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	id TEXT PRIMARY KEY,
	applied_utc TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.isApplied(ctx, m.id)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info("applied migration", "id", m.id)
	}
	return nil
}

func (s *Store) isApplied(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", m.id, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (id, applied_utc) VALUES (?, ?)",
		m.id, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.id, err)
	}
	return tx.Commit()
}

// appliedMigrations lists recorded migration IDs in order.
func (s *Store) appliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM schema_migrations ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
