package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Extraction.AcceptanceThreshold != 0.5 {
		t.Errorf("unexpected default threshold %v", cfg.Extraction.AcceptanceThreshold)
	}
	if len(cfg.Captions.Languages) == 0 {
		t.Error("default caption languages should not be empty")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[captions]
languages = ["de", "en"]
retry_attempts = 5

[extraction]
acceptance_threshold = 0.7

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if resolved != path {
		t.Errorf("resolved path mismatch: %q", resolved)
	}
	if got := cfg.Captions.Languages; len(got) != 2 || got[0] != "de" {
		t.Errorf("languages not applied: %v", got)
	}
	if cfg.Captions.RetryAttempts != 5 {
		t.Errorf("retry_attempts not applied: %d", cfg.Captions.RetryAttempts)
	}
	if cfg.Extraction.AcceptanceThreshold != 0.7 {
		t.Errorf("threshold not applied: %v", cfg.Extraction.AcceptanceThreshold)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging not applied: %+v", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.Speech.Model != defaultSpeechModel {
		t.Errorf("speech model should default, got %q", cfg.Speech.Model)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load of missing file should fall back to defaults: %v", err)
	}
	if exists {
		t.Error("exists should be false for a missing file")
	}
	if cfg.Captions.BaseURL != defaultCaptionsBaseURL {
		t.Errorf("expected default base url, got %q", cfg.Captions.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Extraction.AcceptanceThreshold = 1.5 }},
		{"negative weight", func(c *Config) { c.Extraction.LexicalWeight = -0.1 }},
		{"penalty of one", func(c *Config) { c.Extraction.ContradictionPenalty = 1.0 }},
		{"negative cache bound", func(c *Config) { c.Cache.MaxEntries = -1 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"absurd retries", func(c *Config) { c.Captions.RetryAttempts = 50 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandPath("~/some/dir")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !strings.HasPrefix(got, home) {
		t.Errorf("expected %q under home %q", got, home)
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("embedded sample config must load cleanly: %v", err)
	}
}
