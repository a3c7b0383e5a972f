package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/config"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/render"
	"github.com/clindoc/sasdoc/sas"
)

func generateCmd(opts *rootOptions) *cobra.Command {
	var (
		outDir     string
		format     string
		header     bool
		comments   bool
		programmer string
		project    string
	)

	cmd := &cobra.Command{
		Use:   "generate [globs...]",
		Short: "Generate documentation artifacts for SAS macro programs",
		Long: `Generate documents every macro found in the given files.

Arguments are files, directories, or glob patterns (** is supported).
Each file is split into macro definitions and every definition becomes
one artifact in the output directory. Failures are reported per file
and do not stop the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("out") {
				cfg.Render.OutDir = outDir
			}
			if cmd.Flags().Changed("format") {
				cfg.Render.Format = format
			}
			if cmd.Flags().Changed("header") {
				cfg.Generate.Header = header
			}
			if cmd.Flags().Changed("comments") {
				cfg.Generate.Comments = comments
			}
			if cmd.Flags().Changed("programmer") {
				cfg.Generate.Programmer = programmer
			}
			if cmd.Flags().Changed("project") {
				cfg.Generate.Project = project
			}

			composer := newComposer(cfg, metrics.NoopRecorder{})
			return runGenerate(cmd.Context(), composer, cfg, args)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory for artifacts")
	cmd.Flags().StringVarP(&format, "format", "f", "rtf", "Output format (rtf, pdf, pptx, html, md)")
	cmd.Flags().BoolVar(&header, "header", false, "Generate a program banner header")
	cmd.Flags().BoolVar(&comments, "comments", false, "Annotate source with inline comments")
	cmd.Flags().StringVar(&programmer, "programmer", "", "Programmer name for the banner")
	cmd.Flags().StringVar(&project, "project", "", "Project name for the banner")

	return cmd
}

// runGenerate documents every macro in the resolved source files. Per-file
// failures are logged and counted; the run continues and the final error
// reflects whether anything failed.
func runGenerate(ctx context.Context, composer *compose.Composer, cfg *config.Config, patterns []string) error {
	files, err := resolveSources(patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no SAS files match %v", patterns)
	}

	if err := os.MkdirAll(cfg.Render.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var generated, failed int
	for _, file := range files {
		n, err := generateFile(ctx, composer, cfg, file)
		generated += n
		if err != nil {
			failed++
			slog.Error("Generation failed", "file", file, "error", err)
			continue
		}
	}

	slog.Info("Generation complete",
		"files", len(files),
		"artifacts", generated,
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// generateFile documents every macro in one source file and returns the
// number of artifacts written.
func generateFile(ctx context.Context, composer *compose.Composer, cfg *config.Config, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read source: %w", err)
	}

	sources := sas.SplitMacros(string(data))
	if len(sources) == 0 {
		return 0, compose.ErrNoMacroFound
	}

	format := render.Resolve(cfg.Render.Format)
	info, _ := render.GetFormatInfo(format)
	prefs := cfg.Render.Preferences.Options()

	written := 0
	for _, source := range sources {
		result, err := composer.Compose(ctx, compose.Request{
			Source:         source,
			GenerateHeader: cfg.Generate.Header,
			AddComments:    cfg.Generate.Comments,
			Programmer:     cfg.Generate.Programmer,
			Project:        cfg.Generate.Project,
			Specs:          cfg.Generate.Specs,
		})
		if err != nil {
			return written, err
		}
		for _, warning := range result.Warnings {
			slog.Warn("Enrichment degraded", "file", path, "warning", warning)
		}

		artifact := filepath.Join(cfg.Render.OutDir, render.ArtifactName(result.Document.MacroName, info))
		if _, err := render.RenderFile(result.Document, format, prefs, artifact); err != nil {
			return written, err
		}
		written++

		slog.Info("Artifact written",
			"macro", result.Document.MacroName,
			"format", string(info.Name),
			"path", artifact)
	}

	return written, nil
}

// resolveSources expands files, directories and glob patterns into a
// sorted, deduplicated list of SAS source files.
func resolveSources(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if !containsGlob(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				matches, err := doublestar.FilepathGlob(filepath.Join(pattern, "**", "*.sas"))
				if err != nil {
					return nil, fmt.Errorf("glob error: %w", err)
				}
				for _, m := range matches {
					add(m)
				}
				continue
			}
			add(pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob error: %w", err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(m), ".sas") {
				add(m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
