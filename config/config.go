package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawl configuration.
type Config struct {
	CoserID          string
	BaseURL          string
	RelayURL         string
	MaxPages         int
	DelayPerPage     time.Duration
	Concurrency      int
	ResolveDownloads bool
	CustomFilename   string
	Timeout          time.Duration
	CheckTimeout     time.Duration
	UserAgent        string
	OutputFile       string
	OutputFormat     string // csv, json, html, or dual
	Verbose          bool
	MetricsAddr      string
}

// DefaultConfig returns the stock crawl settings.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://galleryepic.com",
		RelayURL:     "http://localhost:3001",
		MaxPages:     100,
		DelayPerPage: 800 * time.Millisecond,
		Concurrency:  1,
		Timeout:      30 * time.Second,
		CheckTimeout: 15 * time.Second,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		OutputFile:   "output/gallery.csv",
		OutputFormat: "csv",
	}
}

// Validate ensures all configuration values are coherent. The required
// CoserID is checked separately by the engine so that a run fails fast
// before any network I/O.
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

	if c.RelayURL == "" {
		return fmt.Errorf("relay URL cannot be empty")
	}
	parsedRelay, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	if parsedRelay.Host == "" {
		return fmt.Errorf("relay URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.DelayPerPage < 0 {
		return fmt.Errorf("delay per page cannot be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CheckTimeout <= 0 {
		return fmt.Errorf("check timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "html", "dual":
	default:
		return fmt.Errorf("output format must be csv, json, html, or dual")
	}

	return nil
}

// ProfileURL derives the coser's profile URL (the first listing page).
func (c *Config) ProfileURL() string {
	return fmt.Sprintf("%s/en/coser/%s/1", c.BaseURL, c.CoserID)
}

// PageURL derives the listing URL for a page number.
func (c *Config) PageURL(page int) string {
	return fmt.Sprintf("%s/en/coser/%s/%d", c.BaseURL, c.CoserID, page)
}
