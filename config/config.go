package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds extractor configuration.
type Config struct {
	BaseURL         string
	CountryCode     string
	RootSubjectID   int
	Timeout         time.Duration
	PageDelay       time.Duration
	RandomDelay     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	MenuCacheSize   int
	BatchSize       int
	OutputFile      string
	OutputFormat    string // csv, json, or dual
	OutputColumns   string // full or compact
	TotalTolerance  float64
	MetricsAddr     string
	UserAgents      []string
	Verbose         bool
}

// DefaultConfig returns defaults matching the upstream API's informal rate
// tolerance: one page per second, generous per-request timeout.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.ebooks.com",
		CountryCode:     "US",
		RootSubjectID:   184,
		Timeout:         100 * time.Second,
		PageDelay:       time.Second,
		RandomDelay:     0,
		MaxRetries:      2,
		RetryBackoff:    500 * time.Millisecond,
		RetryBackoffMax: 5 * time.Second,
		MenuCacheSize:   128,
		BatchSize:       64,
		OutputFile:      "output/books_data.csv",
		OutputFormat:    "csv",
		OutputColumns:   "full",
		TotalTolerance:  0.05,
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.CountryCode == "" {
		return fmt.Errorf("country code cannot be empty")
	}
	if c.RootSubjectID <= 0 {
		return fmt.Errorf("root subject id must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.MenuCacheSize <= 0 {
		return fmt.Errorf("menu cache size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.OutputColumns != "full" && c.OutputColumns != "compact" {
		return fmt.Errorf("output columns must be full or compact")
	}
	if c.TotalTolerance < 0 || c.TotalTolerance > 1 {
		return fmt.Errorf("total tolerance must be within [0, 1]")
	}

	return nil
}
