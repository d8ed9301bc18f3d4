package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the config file. Durations are spelled out
// in milliseconds so the file stays plain integers.
type fileConfig struct {
	BaseURL           string   `yaml:"base_url"`
	CountryCode       string   `yaml:"country_code"`
	RootSubjectID     *int     `yaml:"root_subject_id"`
	TimeoutSec        *int     `yaml:"timeout_sec"`
	PageDelayMs       *int     `yaml:"page_delay_ms"`
	RandomDelayMs     *int     `yaml:"random_delay_ms"`
	MaxRetries        *int     `yaml:"max_retries"`
	RetryBackoffMs    *int     `yaml:"retry_backoff_ms"`
	RetryBackoffMaxMs *int     `yaml:"retry_backoff_max_ms"`
	MenuCacheSize     *int     `yaml:"menu_cache_size"`
	BatchSize         *int     `yaml:"batch_size"`
	OutputFile        string   `yaml:"output_file"`
	OutputFormat      string   `yaml:"output_format"`
	OutputColumns     string   `yaml:"output_columns"`
	TotalTolerance    *float64 `yaml:"total_tolerance"`
	MetricsAddr       string   `yaml:"metrics_addr"`
	UserAgents        []string `yaml:"user_agents"`
	Verbose           *bool    `yaml:"verbose"`
}

// LoadFile reads a YAML config file and overlays it on the defaults.
// Fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := DefaultConfig()
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.CountryCode != "" {
		cfg.CountryCode = fc.CountryCode
	}
	if fc.RootSubjectID != nil {
		cfg.RootSubjectID = *fc.RootSubjectID
	}
	if fc.TimeoutSec != nil {
		cfg.Timeout = time.Duration(*fc.TimeoutSec) * time.Second
	}
	if fc.PageDelayMs != nil {
		cfg.PageDelay = time.Duration(*fc.PageDelayMs) * time.Millisecond
	}
	if fc.RandomDelayMs != nil {
		cfg.RandomDelay = time.Duration(*fc.RandomDelayMs) * time.Millisecond
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.RetryBackoffMs != nil {
		cfg.RetryBackoff = time.Duration(*fc.RetryBackoffMs) * time.Millisecond
	}
	if fc.RetryBackoffMaxMs != nil {
		cfg.RetryBackoffMax = time.Duration(*fc.RetryBackoffMaxMs) * time.Millisecond
	}
	if fc.MenuCacheSize != nil {
		cfg.MenuCacheSize = *fc.MenuCacheSize
	}
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.OutputFile != "" {
		cfg.OutputFile = fc.OutputFile
	}
	if fc.OutputFormat != "" {
		cfg.OutputFormat = fc.OutputFormat
	}
	if fc.OutputColumns != "" {
		cfg.OutputColumns = fc.OutputColumns
	}
	if fc.TotalTolerance != nil {
		cfg.TotalTolerance = *fc.TotalTolerance
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if len(fc.UserAgents) > 0 {
		cfg.UserAgents = fc.UserAgents
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}
