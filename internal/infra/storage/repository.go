package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// ErrZoneNotFound is returned when a zone doesn't exist.
var ErrZoneNotFound = domain.ErrNotFound

// ZoneRepository handles zone storage operations
type ZoneRepository interface {
	// Create inserts a new zone
	Create(ctx context.Context, zone *domain.Zone) error

	// Get retrieves a zone by identifier
	Get(ctx context.Context, id uuid.UUID) (*domain.Zone, error)

	// List retrieves all zones ordered by name
	List(ctx context.Context) ([]*domain.Zone, error)

	// Update overwrites geometry and display fields (never ActiveEntry)
	Update(ctx context.Context, zone *domain.Zone) error

	// SetActiveEntry sets or clears the transient entered state
	SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error

	// Delete removes a zone; its visit logs are kept
	Delete(ctx context.Context, id uuid.UUID) error
}

// VisitLogFilter narrows a log listing. Zero values mean "no constraint".
type VisitLogFilter struct {
	ZoneIDs []uuid.UUID
	From    time.Time
	To      time.Time
	Limit   int
}

// VisitLogRepository handles the append-only visit log
type VisitLogRepository interface {
	// Insert appends a log
	Insert(ctx context.Context, log *domain.VisitLog) error

	// List retrieves logs ordered by entry descending
	List(ctx context.Context, filter VisitLogFilter) ([]*domain.VisitLog, error)

	// Count returns the total number of logs
	Count(ctx context.Context) (int, error)

	// DeleteAll clears every log (user-initiated bulk clear)
	DeleteAll(ctx context.Context) error

	// DeleteOlderThan removes logs that exited before the threshold
	DeleteOlderThan(ctx context.Context, before time.Time) (int, error)
}

// UnitOfWork groups state changes so they commit or roll back together.
type UnitOfWork interface {
	SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error
	InsertVisitLog(ctx context.Context, log *domain.VisitLog) error
	Commit() error
	// Rollback is safe to call after Commit.
	Rollback() error
}

// Transactor opens units of work.
type Transactor interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// Store is everything the tracking core needs from persistence.
type Store interface {
	Zones() ZoneRepository
	Visits() VisitLogRepository
	Transactor
	Health(ctx context.Context) error
}
