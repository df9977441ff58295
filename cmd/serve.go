package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/refeval/internal/config"
	"github.com/lehigh-university-libraries/refeval/internal/handlers"
	"github.com/lehigh-university-libraries/refeval/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a read-only HTTP API over the run history",
		Long: `Starts an HTTP server exposing the evaluation runs recorded in the
history database.

Endpoints:
  GET /api/runs                        list runs with headline scores
  GET /api/runs/{id}                   full results of one run
  GET /api/runs/{id}/summary           scores per parser
  GET /api/runs/{id}/files?parser=P    per-file results
  GET /healthcheck`,
		Example: `  # Start server on default port 8888
  refeval serve --db runs.db

  # Start server on custom port
  refeval serve --db runs.db --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfgFile, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				dbPath = cfg.History.DB
			}
			if dbPath == "" {
				return fmt.Errorf("--db is required when history.db is not configured")
			}

			store, err := storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			handler := handlers.New(store)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Run history API available", "addr", addr, "url", "http://localhost"+addr, "db", dbPath)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite history database (default from config)")

	return cmd
}
