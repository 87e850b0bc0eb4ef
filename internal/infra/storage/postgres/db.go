package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/vietddude/zonewatch/internal/tracking/metrics"
)

// Config holds PostgreSQL connection settings. The tracking core writes one
// zone row and at most one visit row per transition, so a small pool is enough.
type Config struct {
	URL          string        `yaml:"url"`
	MaxConns     int           `yaml:"max_conns"`
	IdleConns    int           `yaml:"idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

const (
	defaultMaxConns     = 5
	defaultIdleConns    = 1
	defaultConnLifetime = 30 * time.Minute
	poolSampleInterval  = 15 * time.Second
)

// withDefaults fills unset pool settings. Idle connections never exceed the cap.
func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = defaultMaxConns
	}
	if c.IdleConns <= 0 {
		c.IdleConns = defaultIdleConns
	}
	c.IdleConns = min(c.IdleConns, c.MaxConns)
	if c.ConnLifetime <= 0 {
		c.ConnLifetime = defaultConnLifetime
	}
	return c
}

// DB is the zone store's connection pool.
type DB struct {
	*sqlx.DB
}

// NewDB opens the pool and verifies the server is reachable.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()

	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.IdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

// poolUsage is the share of the connection cap in use, in percent.
// It reports false when the pool is unbounded.
func poolUsage(stats sql.DBStats) (float64, bool) {
	if stats.MaxOpenConnections <= 0 {
		return 0, false
	}
	return float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100, true
}

// StartMetricsCollector samples pool usage into the db_pool_usage gauge until ctx is done.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(poolSampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if usage, ok := poolUsage(db.Stats()); ok {
					metrics.DBConnectionPoolUsage.Set(usage)
				}
			}
		}
	}()
}

// Health pings the server.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
