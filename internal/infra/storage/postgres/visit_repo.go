package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

type visitRow struct {
	ID        uuid.UUID `db:"id"`
	ZoneID    uuid.UUID `db:"zone_id"`
	ZoneName  string    `db:"zone_name"`
	EntryAt   time.Time `db:"entry_at"`
	ExitAt    time.Time `db:"exit_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (r visitRow) toDomain() *domain.VisitLog {
	return &domain.VisitLog{
		ID:        r.ID,
		ZoneID:    r.ZoneID,
		ZoneName:  r.ZoneName,
		Entry:     r.EntryAt,
		Exit:      r.ExitAt,
		CreatedAt: r.CreatedAt,
	}
}

// VisitRepo implements storage.VisitLogRepository using PostgreSQL.
type VisitRepo struct {
	db sqlx.ExtContext
}

// NewVisitRepo creates a new PostgreSQL visit log repository.
func NewVisitRepo(db *DB) *VisitRepo {
	return &VisitRepo{db: db}
}

// Insert appends a log.
func (r *VisitRepo) Insert(ctx context.Context, log *domain.VisitLog) error {
	return insertVisit(ctx, r.db, log)
}

// List retrieves logs matching filter ordered by entry descending.
func (r *VisitRepo) List(ctx context.Context, filter storage.VisitLogFilter) ([]*domain.VisitLog, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.ZoneIDs) > 0 {
		ids := make([]string, len(filter.ZoneIDs))
		for i, id := range filter.ZoneIDs {
			ids[i] = id.String()
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("zone_id = ANY($%d::uuid[])", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("entry_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("entry_at < $%d", len(args)))
	}

	query := `SELECT id, zone_id, zone_name, entry_at, exit_at, created_at FROM visit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY entry_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []visitRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visit logs: %w", err)
	}
	logs := make([]*domain.VisitLog, len(rows))
	for i, row := range rows {
		logs[i] = row.toDomain()
	}
	return logs, nil
}

// Count returns the total number of logs.
func (r *VisitRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM visit_logs`); err != nil {
		return 0, fmt.Errorf("failed to count visit logs: %w", err)
	}
	return n, nil
}

// DeleteAll clears every log.
func (r *VisitRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM visit_logs`); err != nil {
		return fmt.Errorf("failed to clear visit logs: %w", err)
	}
	return nil
}

// DeleteOlderThan removes logs that exited before the threshold.
func (r *VisitRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM visit_logs WHERE exit_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune visit logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune visit logs: %w", err)
	}
	return int(n), nil
}

func insertVisit(ctx context.Context, db sqlx.ExecerContext, log *domain.VisitLog) error {
	if !log.Exit.After(log.Entry) {
		return fmt.Errorf("%w: exit %s not after entry %s", domain.ErrValidation, log.Exit, log.Entry)
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO visit_logs (id, zone_id, zone_name, entry_at, exit_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.ZoneID, log.ZoneName, log.Entry, log.Exit, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit log: %w", err)
	}
	return nil
}
