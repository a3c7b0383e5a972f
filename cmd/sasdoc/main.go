// Package main provides the sasdoc binary entry point.
// Sasdoc generates clinical-style user manuals for SAS macro programs,
// as one-shot artifacts, from a file watcher, or behind an HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/clindoc/sasdoc/llm/providers"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/config"
	"github.com/clindoc/sasdoc/llm"
	"github.com/clindoc/sasdoc/metrics"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sasdoc"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions carries the persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sasdoc",
		Short: "SAS macro documentation generator",
		Long: `Sasdoc turns SAS macro programs into validated user manuals.

It extracts macro structure deterministically, enriches the skeleton
through an LLM, and renders the result as rtf, pdf, pptx, html or
markdown. Run it once over a tree of programs, keep it running as a
watcher, or serve the pipeline over HTTP.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine; the environment may already
			// carry the API keys.
			_ = godotenv.Load()
			configureLogging(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(generateCmd(opts))
	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(watchCmd(opts))
	cmd.AddCommand(formatsCmd())

	return cmd
}

// configureLogging installs the process-wide structured logger.
func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig resolves layered configuration for a subcommand.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.NewLoader(slog.Default()).Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newComposer wires the LLM client and pipeline from configuration.
func newComposer(cfg *config.Config, rec metrics.Recorder) *compose.Composer {
	client := llm.NewClient(cfg.Registry(),
		llm.WithLogger(slog.Default()),
		llm.WithMetrics(rec),
	)
	return compose.NewComposer(client,
		compose.WithLogger(slog.Default()),
		compose.WithMetrics(rec),
		compose.WithCompany(cfg.Generate.Company),
		compose.WithWorkers(cfg.Generate.Workers),
	)
}
