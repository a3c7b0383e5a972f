package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/clindoc/sasdoc/config"
	"github.com/clindoc/sasdoc/events"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/server"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownTimeout = 15 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	composer := newComposer(cfg, recorder)

	publisher := (*events.Publisher)(nil)
	if cfg.Events.Enabled {
		p, err := events.Connect(cfg.Events.URL, cfg.Events.SubjectPrefix, slog.Default())
		if err != nil {
			// The API works without a broker; run degraded rather than
			// refusing to start.
			slog.Warn("Event publishing disabled", "url", cfg.Events.URL, "error", err)
		} else {
			publisher = p
			defer publisher.Close()
			slog.Info("Event publishing enabled",
				"url", cfg.Events.URL,
				"subject_prefix", cfg.Events.SubjectPrefix)
		}
	}

	srv := server.New(composer,
		server.WithLogger(slog.Default()),
		server.WithMetrics(recorder),
		server.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})),
		server.WithPublisher(publisher),
		server.WithDefaults(server.Defaults{
			Programmer:  cfg.Generate.Programmer,
			Project:     cfg.Generate.Project,
			Specs:       cfg.Generate.Specs,
			Preferences: cfg.Render.Preferences.Options(),
		}),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Shutdown complete")
	return nil
}
