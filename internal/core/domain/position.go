package domain

import (
	"fmt"
	"time"
)

// Position is one sample delivered by the position feed.
type Position struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Validate checks the sample carries a timestamp and in-range coordinates.
func (p Position) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("%w: position requires a timestamp", ErrValidation)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrValidation, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrValidation, p.Longitude)
	}
	return nil
}
