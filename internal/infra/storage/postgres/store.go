package postgres

import (
	"context"

	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db     *DB
	zones  *ZoneRepo
	visits *VisitRepo
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps an open database.
func NewStore(db *DB) *Store {
	return &Store{
		db:     db,
		zones:  NewZoneRepo(db),
		visits: NewVisitRepo(db),
	}
}

func (s *Store) Zones() storage.ZoneRepository      { return s.zones }
func (s *Store) Visits() storage.VisitLogRepository { return s.visits }
func (s *Store) Health(ctx context.Context) error   { return s.db.Health(ctx) }

// Begin opens a transaction-backed unit of work.
func (s *Store) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	uow, err := s.db.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}
	return uow, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
