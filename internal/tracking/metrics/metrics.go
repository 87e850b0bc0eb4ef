package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal tracks applied zone transitions by direction and trigger
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_transitions_total",
			Help: "Total number of zone transitions applied",
		},
		[]string{"to", "source"},
	)

	// VisitsLogged tracks visit logs written
	VisitsLogged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zonewatch_visits_logged_total",
			Help: "Total number of visit logs created",
		},
	)

	// VisitsDiscarded tracks exits below the minimum visit duration
	VisitsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zonewatch_visits_discarded_total",
			Help: "Total number of visits discarded for being too short",
		},
	)

	// VisitDuration observes logged visit durations
	VisitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zonewatch_visit_duration_seconds",
			Help:    "Duration of logged visits in seconds",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800, 86400},
		},
	)

	// PersistFailures tracks store writes that failed after retries
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_persist_failures_total",
			Help: "Total number of transitions that failed to persist",
		},
		[]string{"operation"},
	)

	// RegionEvents tracks platform events by type
	RegionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_region_events_total",
			Help: "Total number of region events received",
		},
		[]string{"type"},
	)

	// RegionAnomalies tracks events for unknown or malformed region ids
	RegionAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_region_anomalies_total",
			Help: "Total number of region events that referenced no zone",
		},
		[]string{"reason"},
	)

	// MonitoredRegions tracks the size of the monitored set
	MonitoredRegions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zonewatch_monitored_regions",
			Help: "Number of regions currently monitored",
		},
	)

	// RegionEvictions tracks regions evicted to respect the ceiling
	RegionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zonewatch_region_evictions_total",
			Help: "Total number of regions evicted to stay under the ceiling",
		},
	)

	// RegistrationFailures tracks regions the platform refused or dropped
	RegistrationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zonewatch_region_registration_failures_total",
			Help: "Total number of region registrations that failed",
		},
	)

	// PositionsReceived tracks position samples by outcome
	PositionsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_positions_received_total",
			Help: "Total number of position samples received",
		},
		[]string{"outcome"}, // accepted, stale, duplicate, future
	)

	// ReconcileLatency tracks time spent reconciling one position sample
	ReconcileLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zonewatch_reconcile_latency_seconds",
			Help:    "Time spent reconciling all zones against a position sample",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Notifications tracks notification deliveries by kind and result
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonewatch_notifications_total",
			Help: "Total number of notifications by kind and result",
		},
		[]string{"kind", "result"}, // result: sent, failed, dropped
	)

	// DBConnectionPoolUsage tracks busy connections as a share of the pool cap
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zonewatch_db_connection_pool_usage_percent",
			Help: "Database connections in use as a percentage of the pool cap",
		},
	)
)
