package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/zonewatch/internal/api"
	"github.com/vietddude/zonewatch/internal/core/config"
	"github.com/vietddude/zonewatch/internal/core/transition"
	"github.com/vietddude/zonewatch/internal/core/worker"
	redisclient "github.com/vietddude/zonewatch/internal/infra/redis"
	"github.com/vietddude/zonewatch/internal/infra/storage"
	"github.com/vietddude/zonewatch/internal/infra/storage/memory"
	"github.com/vietddude/zonewatch/internal/infra/storage/postgres"
	"github.com/vietddude/zonewatch/internal/tracking/health"
	"github.com/vietddude/zonewatch/internal/tracking/notify"
	"github.com/vietddude/zonewatch/internal/tracking/processor"
	"github.com/vietddude/zonewatch/internal/tracking/recovery"
	"github.com/vietddude/zonewatch/internal/tracking/region"
	"github.com/vietddude/zonewatch/internal/tracking/zones"
)

// Watcher is the main application struct that manages the tracking lifecycle.
type Watcher struct {
	cfg          Config
	store        storage.Store
	pgStore      *postgres.Store
	db           *postgres.DB
	redisClient  *redisclient.Client
	feed         *redisclient.PositionFeed
	platform     *region.SoftwarePlatform
	monitor      *region.Monitor
	machine      *transition.Machine
	dispatcher   *notify.Dispatcher
	processor    *processor.Processor
	zones        *zones.Service
	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	log          *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Config holds the application configuration.
type Config struct {
	Port     int
	Database postgres.Config
	Redis    redisclient.Config
	Tracking config.TrackingConfig
	Platform config.PlatformConfig
	Notify   config.NotifyConfig
	Health   config.HealthConfig

	// Clock overrides time.Now for native region events. Tests only.
	Clock func() time.Time
}

// ConfigFrom maps the loaded file configuration.
func ConfigFrom(cfg *config.AppConfig) Config {
	return Config{
		Port:     cfg.Server.Port,
		Database: cfg.Database,
		Redis:    cfg.Redis,
		Tracking: cfg.Tracking,
		Platform: cfg.Platform,
		Notify:   cfg.Notify,
		Health:   cfg.Health,
	}
}

// NewWatcher creates a new Watcher instance with all dependencies initialized.
func NewWatcher(ctx context.Context, cfg Config) (*Watcher, error) {
	w := &Watcher{cfg: cfg, log: slog.Default()}

	// 1. Storage
	if cfg.Database.URL != "" {
		if err := postgres.Migrate(ctx, cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		w.db = db
		w.pgStore = postgres.NewStore(db)
		w.store = w.pgStore
		w.log.Info("Using PostgreSQL storage")
	} else {
		w.store = memory.NewMemoryStorage()
		w.log.Info("Using Memory storage")
	}

	// 2. Redis (optional)
	var sinks []notify.Sink
	if cfg.Notify.LogEnabled() {
		sinks = append(sinks, notify.NewLogSink(nil))
	}
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			w.closeStore()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		w.redisClient = client
		w.feed = redisclient.NewPositionFeed(client, cfg.Redis.PositionsChannel)
		if cfg.Notify.Redis {
			sinks = append(sinks, redisclient.NewNotificationSink(client, cfg.Redis.NotificationsChannel))
		}
	}

	// 3. Region monitoring
	w.platform = region.NewSoftwarePlatform(cfg.Platform.IsEnabled(), 0)
	policy, err := region.NewEvictionPolicy(cfg.Tracking.EvictionPolicy, w.platform)
	if err != nil {
		w.closeStore()
		return nil, err
	}
	w.monitor = region.NewMonitor(w.platform, region.Config{
		MaxRegions: cfg.Tracking.MaxRegions,
		Policy:     policy,
	})

	// 4. Notifications and state machine
	w.dispatcher = notify.NewDispatcher(cfg.Notify.QueueSize, sinks...)

	retry := recovery.DefaultBackoff(nil)
	if r := cfg.Tracking.PersistRetry; r.MaxAttempts > 0 {
		retry.InitialDelay = r.InitialDelay
		retry.MaxDelay = r.MaxDelay
		retry.MaxAttempts = r.MaxAttempts
	}
	w.machine = transition.NewMachine(w.store, w.dispatcher, transition.Config{
		MinVisitDuration: cfg.Tracking.MinVisitDuration,
		MaxClockSkew:     cfg.Tracking.MaxClockSkew,
		HistorySize:      cfg.Tracking.HistorySize,
		Retry:            retry,
		Clock:            cfg.Clock,
	})
	w.machine.SetTransitionCallback(func(t transition.Transition) {
		w.monitor.Touch(t.ZoneID.String(), t.At)
	})

	// 5. Processor: the single point transitions are applied from
	w.processor = processor.New(processor.Config{
		Machine:  w.machine,
		Failures: w.monitor,
		Observer: w.platform,
	})
	w.processor.AttachEvents(w.platform.Events())

	w.pruner = worker.NewPruner(cfg.Tracking.Retention, w.store.Visits())

	// 6. Editing, API and health
	w.zones = zones.NewService(w.store.Zones(), w.monitor)
	w.healthMon = health.NewMonitor(health.Config{StaleAfter: cfg.Health.StaleAfter}, w.store, w.monitor, w.machine)
	w.healthServer = health.NewServer(w.healthMon, cfg.Port)
	w.healthServer.Mount("/api/v1", api.NewServer(w.zones, w.processor, w.store.Visits(), w.log).Routes())

	return w, nil
}

// Start registers every zone for monitoring and starts all components.
func (w *Watcher) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	zs, err := w.store.Zones().List(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to load zones: %w", err)
	}
	w.monitor.ReconcileAll(runCtx, zs)

	if w.feed != nil {
		positions, err := w.feed.Subscribe(runCtx)
		if err != nil {
			cancel()
			return err
		}
		w.processor.AttachPositions(positions)
	}

	w.dispatcher.Start(runCtx)

	// Start Processor
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		if err := w.processor.Run(runCtx); err != nil {
			w.log.Error("Processor failed", "error", err)
		}
	}()

	// Start Health Server
	go func() {
		if err := w.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Health Monitor Background Tasks
	go w.healthMon.Start(runCtx)

	go w.pruner.Start(runCtx)

	// Start DB Metrics Collector
	if w.db != nil {
		w.db.StartMetricsCollector(runCtx)
	}

	w.log.Info("Watcher started", "zones", len(zs), "monitored", w.monitor.Count(), "port", w.cfg.Port)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")

	w.processor.Stop()
	if w.done != nil {
		<-w.done
	}
	w.dispatcher.Stop()
	if w.cancel != nil {
		w.cancel()
	}

	// Close Redis
	if w.redisClient != nil {
		if err := w.redisClient.Close(); err != nil {
			w.log.Warn("Failed to close Redis", "error", err)
		}
	}

	err := w.healthServer.Stop(ctx)
	w.closeStore()
	return err
}

func (w *Watcher) closeStore() {
	if w.pgStore != nil {
		if err := w.pgStore.Close(); err != nil {
			w.log.Warn("Failed to close database", "error", err)
		}
	}
}

// Handler returns the HTTP handler serving health, metrics and the API.
func (w *Watcher) Handler() http.Handler {
	return w.healthServer.Handler()
}

// Store exposes persistence for the CLI and tests.
func (w *Watcher) Store() storage.Store {
	return w.store
}

// Platform exposes the in-process geofencing platform.
func (w *Watcher) Platform() *region.SoftwarePlatform {
	return w.platform
}

// Monitor exposes the region monitor.
func (w *Watcher) Monitor() *region.Monitor {
	return w.monitor
}

// Health returns the current health report.
func (w *Watcher) Health(ctx context.Context) health.HealthReport {
	return w.healthMon.CheckHealth(ctx)
}
