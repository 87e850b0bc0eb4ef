package config

import (
	"time"

	redisclient "github.com/vietddude/zonewatch/internal/infra/redis"
	"github.com/vietddude/zonewatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Tracking TrackingConfig     `yaml:"tracking"`
	Platform PlatformConfig     `yaml:"platform"`
	Notify   NotifyConfig       `yaml:"notify"`
	Health   HealthConfig       `yaml:"health"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TrackingConfig holds settings for region monitoring and transitions.
type TrackingConfig struct {
	MaxRegions       int           `yaml:"max_regions"`
	EvictionPolicy   string        `yaml:"eviction_policy"` // least_recent, arbitrary
	MinVisitDuration time.Duration `yaml:"min_visit_duration"`
	MaxClockSkew     time.Duration `yaml:"max_clock_skew"` // samples dated further ahead are dropped
	HistorySize      int           `yaml:"history_size"`
	PersistRetry     RetryConfig   `yaml:"persist_retry"`
	Retention        time.Duration `yaml:"retention"` // 0 keeps visits forever
}

// RetryConfig bounds retries of store writes.
type RetryConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// PlatformConfig controls the in-process geofencing platform.
type PlatformConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// NotifyConfig selects notification sinks.
type NotifyConfig struct {
	QueueSize int   `yaml:"queue_size"`
	Log       *bool `yaml:"log"`
	Redis     bool  `yaml:"redis"`
}

// HealthConfig holds health evaluation thresholds.
type HealthConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
}

// IsEnabled defaults to true when unset.
func (p PlatformConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// LogEnabled defaults to true when unset.
func (n NotifyConfig) LogEnabled() bool {
	return n.Log == nil || *n.Log
}
