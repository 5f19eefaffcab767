package domain

import (
	"context"
)

// SafetyEventSink receives reconciliation safety events after each assessment
type SafetyEventSink interface {
	Record(ctx context.Context, events []SafetyEvent) error
}

// HealthChecker reports the health of a backing dependency
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetAdvisorConfig() *AdvisorConfig
	GetClassifierConfig() *ClassifierConfig
	GetDatabaseConfig() *DatabaseConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
