package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

type zoneRow struct {
	ID          uuid.UUID    `db:"id"`
	Name        string       `db:"name"`
	Icon        string       `db:"icon"`
	Category    string       `db:"category"`
	Latitude    float64      `db:"latitude"`
	Longitude   float64      `db:"longitude"`
	Radius      float64      `db:"radius"`
	ActiveEntry sql.NullTime `db:"active_entry"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r zoneRow) toDomain() *domain.Zone {
	z := &domain.Zone{
		ID:        r.ID,
		Name:      r.Name,
		Icon:      r.Icon,
		Category:  domain.Category(r.Category),
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Radius:    r.Radius,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ActiveEntry.Valid {
		t := r.ActiveEntry.Time
		z.ActiveEntry = &t
	}
	return z
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

const zoneColumns = `id, name, icon, category, latitude, longitude, radius, active_entry, created_at, updated_at`

// ZoneRepo implements storage.ZoneRepository using PostgreSQL.
type ZoneRepo struct {
	db sqlx.ExtContext
}

// NewZoneRepo creates a new PostgreSQL zone repository.
func NewZoneRepo(db *DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

// Create inserts a new zone, assigning an id when unset.
func (r *ZoneRepo) Create(ctx context.Context, zone *domain.Zone) error {
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zones (`+zoneColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		zone.ID, zone.Name, zone.Icon, string(zone.Category.OrDefault()),
		zone.Latitude, zone.Longitude, zone.Radius, nullTime(zone.ActiveEntry), now,
	)
	if err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}
	zone.CreatedAt = now
	zone.UpdatedAt = now
	return nil
}

// Get retrieves a zone by id.
func (r *ZoneRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Zone, error) {
	var row zoneRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrZoneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return row.toDomain(), nil
}

// List retrieves all zones ordered by name.
func (r *ZoneRepo) List(ctx context.Context) ([]*domain.Zone, error) {
	var rows []zoneRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT `+zoneColumns+` FROM zones ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	zones := make([]*domain.Zone, len(rows))
	for i, row := range rows {
		zones[i] = row.toDomain()
	}
	return zones, nil
}

// Update overwrites geometry and display fields. active_entry is untouched.
func (r *ZoneRepo) Update(ctx context.Context, zone *domain.Zone) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE zones
		SET name = $2, icon = $3, category = $4, latitude = $5, longitude = $6, radius = $7, updated_at = $8
		WHERE id = $1`,
		zone.ID, zone.Name, zone.Icon, string(zone.Category.OrDefault()),
		zone.Latitude, zone.Longitude, zone.Radius, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update zone: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	zone.UpdatedAt = now
	return nil
}

// SetActiveEntry sets or clears the entered state.
func (r *ZoneRepo) SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error {
	return setActiveEntry(ctx, r.db, id, entry)
}

// Delete removes a zone. Visit logs are not touched.
func (r *ZoneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete zone: %w", err)
	}
	return requireRow(res)
}

func setActiveEntry(ctx context.Context, db sqlx.ExecerContext, id uuid.UUID, entry *time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE zones SET active_entry = $2 WHERE id = $1`,
		id, nullTime(entry),
	)
	if err != nil {
		return fmt.Errorf("failed to set active entry: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrZoneNotFound
	}
	return nil
}
