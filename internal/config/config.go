package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// RunnerConfig is the process configuration. Values are layered: Defaults,
// then an optional JSON file, then RUNNER_* environment variables, then
// command-line flags applied by the caller.
type RunnerConfig struct {
	DBPath          string `json:"db_path"           env:"RUNNER_DB_PATH"`
	ListenAddr      string `json:"listen_addr"       env:"RUNNER_LISTEN_ADDR"`
	LogLevel        string `json:"log_level"         env:"RUNNER_LOG_LEVEL"`
	LogFormat       string `json:"log_format"        env:"RUNNER_LOG_FORMAT"`
	DevMigrations   bool   `json:"dev_migrations"    env:"RUNNER_DEV_MIGRATIONS"`
	WaterWindow     int    `json:"water_window"      env:"RUNNER_WATER_WINDOW"`
	ShutdownTimeout string `json:"shutdown_timeout"  env:"RUNNER_SHUTDOWN_TIMEOUT"` // duration string like "10s"
}

// Defaults returns the built-in configuration.
func Defaults() *RunnerConfig {
	return &RunnerConfig{
		DBPath:          "runner.db",
		ListenAddr:      "localhost:8080",
		LogLevel:        "info",
		LogFormat:       "json",
		WaterWindow:     5,
		ShutdownTimeout: "10s",
	}
}

// Load builds a RunnerConfig from Defaults, the JSON file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*RunnerConfig, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile overlays the JSON file at path. Fields it omits keep their
// current values, so partial files are fine.
func (c *RunnerConfig) loadFile(path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// Validate checks value ranges and formats.
func (c *RunnerConfig) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console; got %q", c.LogFormat)
	}
	if c.WaterWindow < 1 {
		return fmt.Errorf("water_window must be at least 1, got %d", c.WaterWindow)
	}
	if _, err := c.GetShutdownTimeout(); err != nil {
		return err
	}
	return nil
}

// GetShutdownTimeout parses ShutdownTimeout.
func (c *RunnerConfig) GetShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown_timeout %q: %w", c.ShutdownTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("shutdown_timeout must not be negative")
	}
	return d, nil
}
