package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/config"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/watch"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and regenerate documentation on change",
		Long: `Watch monitors a directory tree for SAS program changes and
regenerates the affected artifacts. Changes are debounced so editor
save bursts produce one regeneration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Render.OutDir = outDir
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err = filepath.Abs(root)
			if err != nil {
				return err
			}

			composer := newComposer(cfg, metrics.NoopRecorder{})
			return runWatch(cmd.Context(), composer, cfg, root)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory for artifacts")

	return cmd
}

// runWatch regenerates artifacts for changed files until the context is
// cancelled.
func runWatch(ctx context.Context, composer *compose.Composer, cfg *config.Config, root string) error {
	watcher, err := watch.New(root, watch.Config{
		Debounce:   cfg.Watch.Debounce,
		Extensions: cfg.Watch.Extensions,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if event.Op == watch.OpRemove {
				slog.Debug("Source removed", "path", event.Path)
				continue
			}

			n, err := generateFile(ctx, composer, cfg, event.AbsPath)
			if err != nil {
				slog.Error("Regeneration failed", "path", event.Path, "error", err)
				continue
			}
			slog.Info("Regenerated", "path", event.Path, "artifacts", n)
		}
	}
}
