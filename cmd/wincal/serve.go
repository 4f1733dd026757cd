package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/wincal/feed"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, path string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish the calendar as an ICS subscription feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []feed.Option{feed.WithLogger(a.logger), feed.WithPath(path)}
			if readOnly {
				opts = append(opts, feed.ReadOnly())
			}
			handler, err := feed.New(a.service, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("serving calendar feed", "addr", addr, "path", path)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("feed server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop feed server: %w", err)
			}
			a.logger.Info("feed server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&path, "path", feed.DefaultPath, "resource path")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "reject PUT imports")
	return cmd
}
