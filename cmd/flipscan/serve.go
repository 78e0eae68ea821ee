package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flipscan/internal/adapters/storage"
	"github.com/alejandrodnm/flipscan/internal/api"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	m := metrics.New()

	client := newESIClient()
	opts := []scanner.Option{scanner.WithMetrics(m)}
	if cfg.Storage.Record {
		store, err := storage.NewSnapshotStore(cfg.Storage.DSN, storage.WithRetention(cfg.Retention()))
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, scanner.WithRecorder(store))
	}
	if cfg.Advisor.Enabled {
		a, err := newAdvisor()
		if err != nil {
			return err
		}
		opts = append(opts, scanner.WithAdvisor(a))
	}

	s := scanner.New(scannerConfig(), client, client, opts...)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(s, cfg.Params(), m, cfg.Server.RequestTimeout).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
