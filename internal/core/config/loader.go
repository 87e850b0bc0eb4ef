package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	t := &cfg.Tracking
	if t.MaxRegions == 0 {
		t.MaxRegions = 20
	}
	if t.EvictionPolicy == "" {
		t.EvictionPolicy = "least_recent"
	}
	if t.MinVisitDuration == 0 {
		t.MinVisitDuration = 60 * time.Second
	}
	if t.MaxClockSkew == 0 {
		t.MaxClockSkew = 5 * time.Minute
	}
	if t.HistorySize == 0 {
		t.HistorySize = 50
	}
	if t.PersistRetry.InitialDelay == 0 {
		t.PersistRetry.InitialDelay = 100 * time.Millisecond
	}
	if t.PersistRetry.MaxDelay == 0 {
		t.PersistRetry.MaxDelay = 2 * time.Second
	}
	if t.PersistRetry.MaxAttempts == 0 {
		t.PersistRetry.MaxAttempts = 3
	}

	if cfg.Redis.PositionsChannel == "" {
		cfg.Redis.PositionsChannel = "zonewatch:positions"
	}
	if cfg.Redis.NotificationsChannel == "" {
		cfg.Redis.NotificationsChannel = "zonewatch:notifications"
	}

	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 64
	}
	if cfg.Health.StaleAfter == 0 {
		cfg.Health.StaleAfter = 30 * time.Minute
	}
}

// Validate rejects settings the tracking core cannot run with.
func (c *AppConfig) Validate() error {
	if c.Tracking.MaxRegions < 1 {
		return fmt.Errorf("tracking.max_regions must be positive, got %d", c.Tracking.MaxRegions)
	}
	switch c.Tracking.EvictionPolicy {
	case "least_recent", "arbitrary":
	default:
		return fmt.Errorf("tracking.eviction_policy %q is not supported", c.Tracking.EvictionPolicy)
	}
	if c.Tracking.MinVisitDuration < 0 {
		return fmt.Errorf("tracking.min_visit_duration must not be negative")
	}
	if c.Tracking.MaxClockSkew < 0 {
		return fmt.Errorf("tracking.max_clock_skew must not be negative")
	}
	if c.Tracking.Retention < 0 {
		return fmt.Errorf("tracking.retention must not be negative")
	}
	if c.Notify.Redis && c.Redis.URL == "" {
		return fmt.Errorf("notify.redis requires redis.url")
	}
	return nil
}
