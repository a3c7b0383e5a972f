package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clindoc/sasdoc/model"
)

// chdir changes into dir for the duration of the test, matching t.Chdir
// from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Render.Format != "rtf" {
		t.Errorf("expected default format rtf, got %s", cfg.Render.Format)
	}
	if cfg.Render.Preferences.FontFamily != "Arial" || cfg.Render.Preferences.FontSize != 12 {
		t.Errorf("unexpected default preferences: %+v", cfg.Render.Preferences)
	}
	if cfg.Generate.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Generate.Workers)
	}
	if cfg.Generate.Company != "NewCo" {
		t.Errorf("expected default company NewCo, got %s", cfg.Generate.Company)
	}
	if cfg.Generate.Header || cfg.Generate.Comments {
		t.Error("header and comments should default to off")
	}
	if cfg.Events.Enabled {
		t.Error("events should default to disabled")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %s", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".sas" {
		t.Errorf("expected [.sas] extensions, got %v", cfg.Watch.Extensions)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing server addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "unsupported render format",
			modify:  func(c *Config) { c.Render.Format = "docx" },
			wantErr: true,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Generate.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "zero debounce",
			modify:  func(c *Config) { c.Watch.Debounce = 0 },
			wantErr: true,
		},
		{
			name:    "events enabled without url",
			modify:  func(c *Config) { c.Events.Enabled = true; c.Events.URL = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("SASDOC_TEST_KEY", "TESTKEY_ENV")

	content := `
server:
  addr: ":9999"
generate:
  programmer: J. Smith
  header: true
render:
  format: pdf
  preferences:
    font_size: 14
models:
  endpoints:
    primary:
      provider: openai
      url: https://api.example.com/v1
      model: gpt-test
      max_tokens: 4096
  capabilities:
    documentation:
      preferred: [primary]
events:
  subject_prefix: ${SASDOC_TEST_KEY}
`
	path := filepath.Join(t.TempDir(), "sasdoc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %s", cfg.Server.Addr)
	}
	if !cfg.Generate.Header {
		t.Error("expected header enabled")
	}
	if cfg.Generate.Programmer != "J. Smith" {
		t.Errorf("expected programmer J. Smith, got %s", cfg.Generate.Programmer)
	}
	if cfg.Render.Format != "pdf" {
		t.Errorf("expected format pdf, got %s", cfg.Render.Format)
	}
	if cfg.Render.Preferences.FontSize != 14 {
		t.Errorf("expected font size 14, got %d", cfg.Render.Preferences.FontSize)
	}
	// Unset fields keep their defaults.
	if cfg.Render.Preferences.FontFamily != "Arial" {
		t.Errorf("expected default font family, got %s", cfg.Render.Preferences.FontFamily)
	}
	if cfg.Generate.Workers != 4 {
		t.Errorf("expected default workers, got %d", cfg.Generate.Workers)
	}
	// Environment references expand before parsing.
	if cfg.Events.SubjectPrefix != "TESTKEY_ENV" {
		t.Errorf("expected expanded subject prefix, got %s", cfg.Events.SubjectPrefix)
	}

	ep := cfg.Models.Endpoints["primary"]
	if ep == nil || ep.Model != "gpt-test" || ep.Provider != "openai" {
		t.Errorf("unexpected endpoint config: %+v", ep)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Render.Format = "pdf"

	other := &Config{}
	other.Server.Addr = ":7070"
	other.Generate.Comments = true
	other.Generate.Specs.Level = "study"
	other.Render.Preferences.CodeStyle = "dracula"
	other.Events.Enabled = true
	other.Watch.Extensions = []string{".sas", ".inc"}
	other.Models.Endpoints = map[string]*model.EndpointConfig{
		"local": {Provider: "ollama", Model: "llama3"},
	}

	base.Merge(other)

	if base.Server.Addr != ":7070" {
		t.Errorf("expected merged addr :7070, got %s", base.Server.Addr)
	}
	if !base.Generate.Comments {
		t.Error("expected comments enabled after merge")
	}
	if base.Generate.Specs.Level != "study" {
		t.Errorf("expected specs level study, got %s", base.Generate.Specs.Level)
	}
	if base.Generate.Specs.Type != "macro" {
		t.Errorf("unset specs fields must survive the merge, got type %s", base.Generate.Specs.Type)
	}
	if base.Render.Format != "pdf" {
		t.Errorf("zero-value format must not reset the base, got %s", base.Render.Format)
	}
	if base.Render.Preferences.CodeStyle != "dracula" {
		t.Errorf("expected code style dracula, got %s", base.Render.Preferences.CodeStyle)
	}
	if !base.Events.Enabled {
		t.Error("expected events enabled after merge")
	}
	if len(base.Watch.Extensions) != 2 {
		t.Errorf("expected merged extensions, got %v", base.Watch.Extensions)
	}
	if base.Models.Endpoints["local"] == nil {
		t.Error("expected merged endpoint")
	}

	base.Merge(nil) // must not panic
}

func TestLoaderExplicitFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "override.yaml")
	content := "render:\n  format: md\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Render.Format != "md" {
		t.Errorf("expected format md from explicit file, got %s", cfg.Render.Format)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("defaults must survive an overlay, got addr %s", cfg.Server.Addr)
	}
}

func TestLoaderExplicitFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	if _, err := NewLoader(nil).Load("/definitely/not/here.yaml"); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoaderProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	project := t.TempDir()
	content := "generate:\n  programmer: Project Author\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(project, "src", "macros")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	cfg, err := NewLoader(nil).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Generate.Programmer != "Project Author" {
		t.Errorf("expected project config to apply, got programmer %s", cfg.Generate.Programmer)
	}
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Registry() == nil {
		t.Fatal("empty models section must fall back to built-in registry")
	}

	cfg.Models.Endpoints = map[string]*model.EndpointConfig{
		"primary": {Provider: "openai", Model: "gpt-test"},
	}
	cfg.Models.Capabilities = map[string]*model.CapabilityConfig{
		"documentation": {Preferred: []string{"primary"}},
	}

	reg := cfg.Registry()
	if reg == nil {
		t.Fatal("expected registry from config")
	}
	if got := reg.GetEndpoint("primary"); got == nil || got.Model != "gpt-test" {
		t.Errorf("unexpected endpoint from configured registry: %+v", got)
	}
}
