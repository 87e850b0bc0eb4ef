package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// UnitOfWork bundles state changes into a single database transaction,
// ensuring atomicity (all succeed or all fail).
type UnitOfWork struct {
	tx *sqlx.Tx
}

var _ storage.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// SetActiveEntry sets or clears a zone's entered state within the transaction.
func (u *UnitOfWork) SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	return setActiveEntry(ctx, u.tx, id, entry)
}

// InsertVisitLog appends a log within the transaction.
func (u *UnitOfWork) InsertVisitLog(ctx context.Context, log *domain.VisitLog) error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	return insertVisit(ctx, u.tx, log)
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Already committed or rolled back
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}
