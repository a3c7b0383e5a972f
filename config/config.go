// Package config provides configuration loading and management for sasdoc.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/model"
	"github.com/clindoc/sasdoc/render"
)

// Config represents the complete sasdoc configuration
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Models   model.RegistryConfig `yaml:"models"`
	Generate GenerateConfig       `yaml:"generate"`
	Render   RenderConfig         `yaml:"render"`
	Events   EventsConfig         `yaml:"events"`
	Watch    WatchConfig          `yaml:"watch"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
}

// GenerateConfig configures the documentation pipeline defaults
type GenerateConfig struct {
	// Header prepends a program header banner to the working source
	Header bool `yaml:"header"`
	// Comments asks the model to annotate the source
	Comments bool `yaml:"comments"`
	// Programmer fills the banner and doxygen author lines
	Programmer string `yaml:"programmer"`
	// Project fills the banner project line
	Project string `yaml:"project"`
	// Company appears in the banner copyright line
	Company string `yaml:"company"`
	// Specs fills the banner program specification block
	Specs compose.ProgramSpecs `yaml:"specs"`
	// Workers caps concurrent parameter description requests
	Workers int `yaml:"workers"`
}

// RenderConfig configures manual output
type RenderConfig struct {
	// Format is the default output format (rtf, pdf, pptx, html, md)
	Format string `yaml:"format"`
	// OutDir is where generated manuals are written
	OutDir string `yaml:"out_dir"`
	// Preferences are the default formatting preferences
	Preferences PreferencesConfig `yaml:"preferences"`
}

// PreferencesConfig holds formatting preferences in their wire names
type PreferencesConfig struct {
	FontFamily   string `yaml:"font_family" json:"font_family"`
	FontSize     int    `yaml:"font_size" json:"font_size"`
	HeadingStyle string `yaml:"heading_style" json:"heading_style"`
	CodeStyle    string `yaml:"code_style" json:"code_style"`
}

// Options converts the preferences to renderer options.
func (p PreferencesConfig) Options() render.Options {
	return render.Options{
		FontFamily:   p.FontFamily,
		FontSize:     p.FontSize,
		HeadingStyle: p.HeadingStyle,
		CodeStyle:    p.CodeStyle,
	}
}

// EventsConfig configures the NATS event publisher
type EventsConfig struct {
	// Enabled turns event publishing on
	Enabled bool `yaml:"enabled"`
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// SubjectPrefix prefixes every published subject (default: sasdoc)
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WatchConfig configures the filesystem watcher
type WatchConfig struct {
	// Debounce is the quiet period before a changed file regenerates
	Debounce time.Duration `yaml:"debounce"`
	// Extensions lists the file extensions that trigger regeneration
	Extensions []string `yaml:"extensions"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Generate: GenerateConfig{
			Programmer: "sasdoc",
			Company:    compose.DefaultCompany,
			Specs:      compose.DefaultProgramSpecs(),
			Workers:    4,
		},
		Render: RenderConfig{
			Format: string(render.FormatRTF),
			OutDir: ".",
			Preferences: PreferencesConfig{
				FontFamily:   render.DefaultFontFamily,
				FontSize:     render.DefaultFontSize,
				HeadingStyle: render.DefaultHeadingStyle,
				CodeStyle:    render.DefaultCodeStyle,
			},
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "sasdoc",
		},
		Watch: WatchConfig{
			Debounce:   500 * time.Millisecond,
			Extensions: []string{".sas"},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, ok := render.GetFormatInfo(render.Format(c.Render.Format)); !ok {
		return fmt.Errorf("render.format %q is not a supported format", c.Render.Format)
	}
	if c.Generate.Workers < 1 {
		return fmt.Errorf("generate.workers must be at least 1")
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. Environment
// variable references ($VAR or ${VAR}) are expanded before parsing, so
// secrets like API key names never need to live in the file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	if len(other.Models.Capabilities) > 0 {
		if c.Models.Capabilities == nil {
			c.Models.Capabilities = make(map[string]*model.CapabilityConfig)
		}
		for k, v := range other.Models.Capabilities {
			c.Models.Capabilities[k] = v
		}
	}
	if len(other.Models.Endpoints) > 0 {
		if c.Models.Endpoints == nil {
			c.Models.Endpoints = make(map[string]*model.EndpointConfig)
		}
		for k, v := range other.Models.Endpoints {
			c.Models.Endpoints[k] = v
		}
	}
	if other.Models.Defaults != nil {
		c.Models.Defaults = other.Models.Defaults
	}

	if other.Generate.Header {
		c.Generate.Header = true
	}
	if other.Generate.Comments {
		c.Generate.Comments = true
	}
	if other.Generate.Programmer != "" {
		c.Generate.Programmer = other.Generate.Programmer
	}
	if other.Generate.Project != "" {
		c.Generate.Project = other.Generate.Project
	}
	if other.Generate.Company != "" {
		c.Generate.Company = other.Generate.Company
	}
	if other.Generate.Specs.Type != "" {
		c.Generate.Specs.Type = other.Generate.Specs.Type
	}
	if other.Generate.Specs.Level != "" {
		c.Generate.Specs.Level = other.Generate.Specs.Level
	}
	if other.Generate.Specs.Category != "" {
		c.Generate.Specs.Category = other.Generate.Specs.Category
	}
	if other.Generate.Specs.Heritage != "" {
		c.Generate.Specs.Heritage = other.Generate.Specs.Heritage
	}
	if other.Generate.Workers != 0 {
		c.Generate.Workers = other.Generate.Workers
	}

	if other.Render.Format != "" {
		c.Render.Format = other.Render.Format
	}
	if other.Render.OutDir != "" {
		c.Render.OutDir = other.Render.OutDir
	}
	if other.Render.Preferences.FontFamily != "" {
		c.Render.Preferences.FontFamily = other.Render.Preferences.FontFamily
	}
	if other.Render.Preferences.FontSize != 0 {
		c.Render.Preferences.FontSize = other.Render.Preferences.FontSize
	}
	if other.Render.Preferences.HeadingStyle != "" {
		c.Render.Preferences.HeadingStyle = other.Render.Preferences.HeadingStyle
	}
	if other.Render.Preferences.CodeStyle != "" {
		c.Render.Preferences.CodeStyle = other.Render.Preferences.CodeStyle
	}

	if other.Events.Enabled {
		c.Events.Enabled = true
	}
	if other.Events.URL != "" {
		c.Events.URL = other.Events.URL
	}
	if other.Events.SubjectPrefix != "" {
		c.Events.SubjectPrefix = other.Events.SubjectPrefix
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
}

// Registry builds the model registry from the models section, falling
// back to the built-in defaults when the section is empty.
func (c *Config) Registry() *model.Registry {
	if len(c.Models.Capabilities) == 0 && len(c.Models.Endpoints) == 0 {
		return model.NewDefaultRegistry()
	}
	return model.FromConfig(&c.Models)
}
