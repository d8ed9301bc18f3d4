package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extractor.yaml")
	body := `
base_url: http://example.test
page_delay_ms: 250
max_retries: 5
output_format: dual
output_columns: compact
user_agents:
  - test-agent/1.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.BaseURL != "http://example.test" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.PageDelay != 250*time.Millisecond {
		t.Fatalf("page delay = %v, want 250ms", cfg.PageDelay)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("max retries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.OutputFormat != "dual" || cfg.OutputColumns != "compact" {
		t.Fatalf("output = %s/%s, want dual/compact", cfg.OutputFormat, cfg.OutputColumns)
	}
	if len(cfg.UserAgents) != 1 || cfg.UserAgents[0] != "test-agent/1.0" {
		t.Fatalf("user agents = %v", cfg.UserAgents)
	}
	// Untouched fields keep their defaults.
	if cfg.CountryCode != "US" || cfg.RootSubjectID != 184 {
		t.Fatalf("defaults not preserved: %s/%d", cfg.CountryCode, cfg.RootSubjectID)
	}
	if cfg.Timeout != 100*time.Second {
		t.Fatalf("timeout = %v, want 100s", cfg.Timeout)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extractor.yaml")
	if err := os.WriteFile(path, []byte("output_format: xml\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
