package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VisitLog is an immutable record of one completed stay inside a zone.
// ZoneName is a snapshot taken at exit time so history survives renames
// and deletions.
type VisitLog struct {
	ID        uuid.UUID
	ZoneID    uuid.UUID
	ZoneName  string
	Entry     time.Time
	Exit      time.Time
	CreatedAt time.Time
}

// NewVisitLog builds a log for a zone. Exit must be strictly after entry.
func NewVisitLog(zone *Zone, entry, exit time.Time) (*VisitLog, error) {
	if !exit.After(entry) {
		return nil, fmt.Errorf("%w: exit %s not after entry %s", ErrValidation, exit, entry)
	}
	return &VisitLog{
		ID:       uuid.New(),
		ZoneID:   zone.ID,
		ZoneName: zone.Name,
		Entry:    entry,
		Exit:     exit,
	}, nil
}

// Duration is derived, never stored.
func (v *VisitLog) Duration() time.Duration {
	return v.Exit.Sub(v.Entry)
}

// FormatDuration renders a visit duration for notifications and listings.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
