// Package config loads settings for the spytape tool.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds spytape configuration.
type Config struct {
	TapeDir      string `yaml:"tape_dir"`
	LogLevel     string `yaml:"log_level"`
	DatabasePath string `yaml:"database_path"`
	Format       string `yaml:"format"`
}

// Load loads configuration from environment variables.
func Load() *Config {
	tapeDir := os.Getenv("SPYTAPE_DIR")
	if tapeDir == "" {
		tapeDir = ".spytape"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	format := os.Getenv("SPYTAPE_FORMAT")
	if format == "" {
		format = "table"
	}

	return &Config{
		TapeDir:      tapeDir,
		LogLevel:     logLevel,
		DatabasePath: os.Getenv("SPYTAPE_DB"),
		Format:       format,
	}
}

// LoadFile loads environment configuration and overlays the non-empty
// fields of the YAML file at path.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.TapeDir != "" {
		cfg.TapeDir = file.TapeDir
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.DatabasePath != "" {
		cfg.DatabasePath = file.DatabasePath
	}
	if file.Format != "" {
		cfg.Format = file.Format
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean INFO.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
