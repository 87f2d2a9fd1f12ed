// Package config provides configuration loading and validation for the
// service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds service settings. All fields are optional in the JSON file;
// environment variables override file values.
type Config struct {
	// Service
	Port    int `json:"port,omitempty"`    // HTTP listen port
	Workers int `json:"workers,omitempty"` // pipeline worker pool size

	// Upstreams
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Downloads
	DownloadTokenSecret string `json:"download_token_secret,omitempty"` // HMAC secret for signed download links

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // print detailed progress in CLI mode
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Port:    8080,
		Workers: 4,
	}
}

// LoadFile loads configuration from a JSON file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables: PORT, WORKERS,
// GEMINI_API_KEY, DATABASE_URL, DOWNLOAD_TOKEN_SECRET.
func (c *Config) ApplyEnv() {
	if raw := os.Getenv("PORT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			c.Port = v
		}
	}
	if raw := os.Getenv("WORKERS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			c.Workers = v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("DOWNLOAD_TOKEN_SECRET"); v != "" {
		c.DownloadTokenSecret = v
	}
}

// MergeWithDefaults fills zero-valued fields from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.DownloadTokenSecret == "" {
		result.DownloadTokenSecret = defaults.DownloadTokenSecret
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}
	return result
}

// Validate checks value ranges. Presence of required fields is checked at
// the call site, since the CLI run command needs less than the server.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	return nil
}
