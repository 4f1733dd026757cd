// Command wincal manages a personal calendar stored in SQLite: it imports
// and exports ICS files, prints agendas with recurring events expanded and
// previews recurrence rules.
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("wincal failed", "error", err)
		os.Exit(1)
	}
}
