package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Advisor     AdvisorConfig    `mapstructure:"advisor"`
	Classifier  ClassifierConfig `mapstructure:"classifier"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Audit       AuditConfig      `mapstructure:"audit"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AdvisorConfig selects the engine schema and its static artifacts
type AdvisorConfig struct {
	Schema      string `mapstructure:"schema"`       // core-6, extended-11, core-6-reasons
	ReasonsPath string `mapstructure:"reasons_path"` // JSON list of reason texts
	ColumnsPath string `mapstructure:"columns_path"` // JSON list of training columns
}

// ClassifierConfig represents risk classifier configuration
type ClassifierConfig struct {
	Mode            string        `mapstructure:"mode"`       // "local", "remote"
	ModelPath       string        `mapstructure:"model_path"` // local JSON model artifact
	BaseURL         string        `mapstructure:"base_url"`   // remote model server
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	MaxRequests     uint32        `mapstructure:"max_requests"`
	BreakerInterval time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AuditConfig represents safety event audit configuration
type AuditConfig struct {
	Driver         string `mapstructure:"driver"` // "sqlite", "postgres", "none"
	SQLitePath     string `mapstructure:"sqlite_path"`
	PublishChannel string `mapstructure:"publish_channel"` // Redis channel, empty disables
}

// CacheConfig represents Redis configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RateLimitConfig represents per-client API rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	MaxClients        int     `mapstructure:"max_clients"`
}
