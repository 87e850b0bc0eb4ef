package domain

import "time"

// RegionEventType enumerates what the monitoring platform can report.
type RegionEventType string

const (
	RegionEntered          RegionEventType = "entered"
	RegionExited           RegionEventType = "exited"
	RegionMonitoringFailed RegionEventType = "monitoring_failed"
)

// RegionEvent is delivered by the platform for a monitored region.
// RegionID is the zone identifier rendered as a string and is untrusted.
type RegionEvent struct {
	Type       RegionEventType `json:"type"`
	RegionID   string          `json:"region_id"`
	Reason     string          `json:"reason,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Region is the monitored counterpart of a zone.
type Region struct {
	ID        string
	Latitude  float64
	Longitude float64
	Radius    float64
}

// RegionFor derives the region geometry from a zone.
func RegionFor(z *Zone) Region {
	return Region{
		ID:        z.RegionID(),
		Latitude:  z.Latitude,
		Longitude: z.Longitude,
		Radius:    z.Radius,
	}
}
