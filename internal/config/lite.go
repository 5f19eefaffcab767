// Package config provides configuration management for the advisor servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/service"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for artifacts and the audit database

	// Engine settings
	Schema      string // core-6, extended-11, core-6-reasons
	ReasonsPath string // Optional: overrides DataDir/reasons.json
	ColumnsPath string // Optional: training column manifest

	// Classifier settings
	ModelPath         string        // Optional: overrides DataDir/model.json
	ClassifierURL     string        // Optional: remote model server, replaces the local model
	ClassifierAPIKey  string        // Optional: bearer token for the model server
	ClassifierTimeout time.Duration // Remote request timeout

	// Audit
	AuditEnabled bool // Record safety events in DataDir/audit.db

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".maternal-risk-advisor")

	return &LiteConfig{
		DataDir:           dataDir,
		Schema:            service.SchemaCore,
		ClassifierTimeout: 10 * time.Second,
		AuditEnabled:      true,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("MRA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("MRA_SCHEMA"); v != "" {
		cfg.Schema = v
	}
	cfg.ReasonsPath = os.Getenv("MRA_REASONS_PATH")
	cfg.ColumnsPath = os.Getenv("MRA_COLUMNS_PATH")

	cfg.ModelPath = os.Getenv("MRA_MODEL_PATH")
	cfg.ClassifierURL = os.Getenv("MRA_CLASSIFIER_URL")
	cfg.ClassifierAPIKey = os.Getenv("MRA_CLASSIFIER_API_KEY")
	if v := os.Getenv("MRA_CLASSIFIER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ClassifierTimeout = d
		}
	}

	if v := os.Getenv("MRA_AUDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AuditEnabled = b
		}
	}

	if v := os.Getenv("MRA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MRA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AuditDBPath returns the path to the safety event SQLite database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// ModelArtifactPath returns the local model artifact path.
func (c *LiteConfig) ModelArtifactPath() string {
	if c.ModelPath != "" {
		return c.ModelPath
	}
	return filepath.Join(c.DataDir, "model.json")
}

// ReasonTablePath returns the reason table path.
func (c *LiteConfig) ReasonTablePath() string {
	if c.ReasonsPath != "" {
		return c.ReasonsPath
	}
	return filepath.Join(c.DataDir, "reasons.json")
}

// AdvisorConfig converts the lite settings to the shared advisor settings.
func (c *LiteConfig) AdvisorConfig() domain.AdvisorConfig {
	return domain.AdvisorConfig{
		Schema:      c.Schema,
		ReasonsPath: c.ReasonTablePath(),
		ColumnsPath: c.ColumnsPath,
	}
}

// ClassifierConfig converts the lite settings to the shared classifier settings.
func (c *LiteConfig) ClassifierConfig() domain.ClassifierConfig {
	if c.ClassifierURL != "" {
		return domain.ClassifierConfig{
			Mode:    ClassifierRemote,
			BaseURL: c.ClassifierURL,
			APIKey:  c.ClassifierAPIKey,
			Timeout: c.ClassifierTimeout,
		}
	}
	return domain.ClassifierConfig{
		Mode:      ClassifierLocal,
		ModelPath: c.ModelArtifactPath(),
	}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
