// Package config holds crawler configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds everything the crawler, the site adapter, and the report
// writers need for one run.
type Config struct {
	BaseURL   string
	UserID    string
	Password  string
	UserAgent string

	StatePath string
	ThumbDir  string
	DebugDir  string

	OutputFile   string
	OutputFormat string // csv, json, or dual

	Timeout     time.Duration
	SettleDelay time.Duration

	FetchRetries int
	LoginRetries int
	RetryDelay   time.Duration

	SkipThumbnails bool
	MetricsAddr    string
	Verbose        bool
}

// DefaultConfig returns conservative defaults for the target site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://www.monotaro.com",
		UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		StatePath:    "data/cache/order.json",
		ThumbDir:     "data/cache/thumb",
		DebugDir:     "data/debug",
		OutputFile:   "output/order_history.csv",
		OutputFormat: "csv",
		Timeout:      10 * time.Second,
		SettleDelay:  time.Second,
		FetchRetries: 3,
		LoginRetries: 2,
		RetryDelay:   time.Second,
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

	if c.UserID == "" {
		return fmt.Errorf("login user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("login password cannot be empty")
	}
	if c.StatePath == "" {
		return fmt.Errorf("state path cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.FetchRetries <= 0 {
		return fmt.Errorf("fetch retries must be positive")
	}
	if c.LoginRetries <= 0 {
		return fmt.Errorf("login retries must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString reads a string environment variable.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}
