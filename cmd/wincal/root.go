package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/wincal/internal/config"
	"github.com/cyp0633/wincal/recurrence"
	"github.com/cyp0633/wincal/service"
	"github.com/cyp0633/wincal/storage/sqlite"
	"github.com/spf13/cobra"
)

// skipStore marks commands that run without opening the database.
const skipStore = "wincal/skip-store"

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string

	cfg     *config.Config
	logger  *slog.Logger
	engine  *recurrence.Engine
	store   *sqlite.Store
	service *service.Service
}

// run executes the command line in args and releases the database
// afterwards, whether or not the command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "wincal",
		Short:         "Personal calendar with recurring events and ICS interchange",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: wincal.yaml in the working or user config directory)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path, overrides the config")

	root.AddCommand(
		newAddCmd(a),
		newDeleteCmd(a),
		newAgendaCmd(a),
		newExpandCmd(a),
		newSearchCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
		newSeedCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database = a.dbPath
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))

	if cmd.Annotations[skipStore] != "" {
		return nil
	}

	if err := ensureDir(cfg.Database); err != nil {
		return err
	}
	store, err := sqlite.Open(cmd.Context(), cfg.Database, sqlite.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.store = store
	a.engine = recurrence.NewEngineWithConfig(cfg.EngineConfig())
	a.service = service.New(store,
		service.WithLogger(a.logger),
		service.WithEngine(a.engine),
		service.WithDefaultCategory(cfg.DefaultCategory),
		service.WithClock(func() time.Time { return time.Now().In(cfg.Location()) }),
	)
	a.logger.Debug("database opened", "path", cfg.Database)
	return nil
}

func (a *app) close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.store != nil {
		store := a.store
		a.store = nil
		if err := store.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

func ensureDir(dbPath string) error {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// location is the configured zone, or Local before setup has run.
func (a *app) location() *time.Location {
	if a.cfg == nil {
		return time.Local
	}
	return a.cfg.Location()
}

// parseTime reads a flag value in the configured zone. Blank yields def.
func (a *app) parseTime(name, raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := recurrence.ParseDateTime(raw, a.location()).Get()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return t, nil
}

func (a *app) parseTimes(name string, raws []string) ([]time.Time, error) {
	var out []time.Time
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		t, err := a.parseTime(name, raw, time.Time{})
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
