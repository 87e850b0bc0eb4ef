package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Radius bounds in metres accepted for a zone.
const (
	MinRadiusMeters = 50.0
	MaxRadiusMeters = 1000.0
	MinNameLength   = 2
)

// Zone is a user-defined circular area that is tracked for visits.
// ActiveEntry is non-nil exactly when the zone is considered entered.
type Zone struct {
	ID          uuid.UUID
	Name        string
	Icon        string
	Category    Category
	Latitude    float64
	Longitude   float64
	Radius      float64
	ActiveEntry *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Inside reports whether the zone is currently in the entered state.
func (z *Zone) Inside() bool {
	return z.ActiveEntry != nil
}

// RegionID returns the identifier under which the zone is monitored.
func (z *Zone) RegionID() string {
	return z.ID.String()
}

// Validate checks geometry and display metadata.
func (z *Zone) Validate() error {
	if err := ValidateGeometry(z.Latitude, z.Longitude, z.Radius); err != nil {
		return err
	}
	if len([]rune(strings.TrimSpace(z.Name))) < MinNameLength {
		return fmt.Errorf("%w: name must be at least %d characters", ErrValidation, MinNameLength)
	}
	if !z.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, z.Category)
	}
	return nil
}

// ValidateGeometry checks that a circle can be registered for monitoring.
func ValidateGeometry(lat, lng, radius float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrValidation, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrValidation, lng)
	}
	if radius < MinRadiusMeters || radius > MaxRadiusMeters {
		return fmt.Errorf(
			"%w: radius %.0f must be within [%.0f, %.0f]",
			ErrValidation, radius, MinRadiusMeters, MaxRadiusMeters,
		)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (z *Zone) Clone() *Zone {
	c := *z
	if z.ActiveEntry != nil {
		t := *z.ActiveEntry
		c.ActiveEntry = &t
	}
	return &c
}

// Category is the closed set of zone tags.
type Category string

const (
	CategoryHome    Category = "home"
	CategoryWork    Category = "work"
	CategoryGym     Category = "gym"
	CategorySchool  Category = "school"
	CategorySocial  Category = "social"
	CategoryErrands Category = "errands"
	CategoryOther   Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryHome,
	CategoryWork,
	CategoryGym,
	CategorySchool,
	CategorySocial,
	CategoryErrands,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// OrDefault returns the catch-all category when c is unset.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryOther
	}
	return c
}
