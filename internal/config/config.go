// Package config provides unified configuration for Gridframe tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the Gridframe store and CLI.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Interval holds default periodic-index settings
	Interval IntervalConfig `json:"interval" yaml:"interval"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type selects the backend: local or s3
	Type string `json:"type" yaml:"type"`

	// Path is the base path for local storage
	Path string `json:"path" yaml:"path"`

	// Prefix is the object path prefix for frame blobs
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 holds S3-specific settings
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// IntervalConfig holds default periodic-index settings.
type IntervalConfig struct {
	// Period is the default sampling period
	Period time.Duration `json:"period" yaml:"period"`

	// TimezoneRequired demands explicit offsets on index values
	TimezoneRequired bool `json:"timezone_required" yaml:"timezone_required"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/gridframe",
		Storage: StorageConfig{
			Type:   "local",
			Prefix: "frames",
		},
		Interval: IntervalConfig{
			Period:           15 * time.Minute,
			TimezoneRequired: true,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/gridframe"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "frames"
	}
}

// CatalogPath returns the path to the catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Interval.Period <= 0 {
		return fmt.Errorf("interval.period must be positive, got %s", c.Interval.Period)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GRIDFRAME_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GRIDFRAME_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GRIDFRAME_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("GRIDFRAME_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("GRIDFRAME_STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("GRIDFRAME_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("GRIDFRAME_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("GRIDFRAME_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("GRIDFRAME_INTERVAL_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Interval.Period = d
		}
	}
	if v := os.Getenv("GRIDFRAME_TIMEZONE_REQUIRED"); v != "" {
		cfg.Interval.TimezoneRequired = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.Storage.Path}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
