// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/zonewatch/internal/core/transition"
	"github.com/vietddude/zonewatch/internal/tracking/region"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// rank orders statuses so the worst one wins.
func (s SystemStatus) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// ComponentHealth is the status of one subsystem.
type ComponentHealth struct {
	Status  SystemStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
	Regions      region.Status              `json:"regions"`
	Tracking     transition.Metrics         `json:"tracking"`
	CheckedAt    time.Time                  `json:"checked_at"`
}
