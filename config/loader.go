package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "sasdoc.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/sasdoc"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/sasdoc/config.yaml)
// 3. Project config (sasdoc.yaml in current or parent directories)
// 4. Explicit file (--config), which must exist when given
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if userPath := l.userConfigPath(); userPath != "" {
		if overlay, err := loadOverlay(userPath); err == nil {
			l.logger.Debug("Loaded user config", "path", userPath)
			config.Merge(overlay)
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to load user config", "path", userPath, "error", err)
		}
	}

	if projectPath := l.findProjectConfig(); projectPath != "" {
		if overlay, err := loadOverlay(projectPath); err == nil {
			l.logger.Debug("Loaded project config", "path", projectPath)
			config.Merge(overlay)
		} else {
			l.logger.Warn("Failed to load project config", "path", projectPath, "error", err)
		}
	}

	if explicit != "" {
		overlay, err := loadOverlay(explicit)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", "path", explicit)
		config.Merge(overlay)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadOverlay parses a config file without applying defaults, so merging
// it only touches the fields the file actually sets.
func loadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &config, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for sasdoc.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
