package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// MemoryStorage keeps zones and visit logs in process. It is used when no
// database URL is configured and as the reference store in tests.
type MemoryStorage struct {
	zones map[uuid.UUID]*domain.Zone
	logs  []*domain.VisitLog
	mu    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		zones: make(map[uuid.UUID]*domain.Zone),
	}
}

func (s *MemoryStorage) Zones() storage.ZoneRepository      { return &ZoneRepo{store: s} }
func (s *MemoryStorage) Visits() storage.VisitLogRepository { return &VisitRepo{store: s} }
func (s *MemoryStorage) Health(ctx context.Context) error   { return nil }

// -----------------------------------------------------------------------------
// Zone Repository
// -----------------------------------------------------------------------------

type ZoneRepo struct {
	store *MemoryStorage
}

func NewZoneRepo(store *MemoryStorage) *ZoneRepo {
	return &ZoneRepo{store: store}
}

func (r *ZoneRepo) Create(ctx context.Context, zone *domain.Zone) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	if _, exists := r.store.zones[zone.ID]; exists {
		return fmt.Errorf("zone %s already exists", zone.ID)
	}
	now := time.Now().UTC()
	zone.CreatedAt = now
	zone.UpdatedAt = now
	r.store.zones[zone.ID] = zone.Clone()
	return nil
}

func (r *ZoneRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Zone, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	z, ok := r.store.zones[id]
	if !ok {
		return nil, storage.ErrZoneNotFound
	}
	return z.Clone(), nil
}

func (r *ZoneRepo) List(ctx context.Context) ([]*domain.Zone, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	zones := make([]*domain.Zone, 0, len(r.store.zones))
	for _, z := range r.store.zones {
		zones = append(zones, z.Clone())
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Name == zones[j].Name {
			return zones[i].ID.String() < zones[j].ID.String()
		}
		return zones[i].Name < zones[j].Name
	})
	return zones, nil
}

func (r *ZoneRepo) Update(ctx context.Context, zone *domain.Zone) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.zones[zone.ID]
	if !ok {
		return storage.ErrZoneNotFound
	}
	updated := zone.Clone()
	// ActiveEntry belongs to the state machine.
	updated.ActiveEntry = existing.ActiveEntry
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.store.zones[zone.ID] = updated
	zone.UpdatedAt = updated.UpdatedAt
	zone.CreatedAt = updated.CreatedAt
	return nil
}

func (r *ZoneRepo) SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.setActiveEntryLocked(id, entry)
}

func (r *ZoneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.zones[id]; !ok {
		return storage.ErrZoneNotFound
	}
	delete(r.store.zones, id)
	return nil
}

func (s *MemoryStorage) setActiveEntryLocked(id uuid.UUID, entry *time.Time) error {
	z, ok := s.zones[id]
	if !ok {
		return storage.ErrZoneNotFound
	}
	if entry == nil {
		z.ActiveEntry = nil
	} else {
		t := *entry
		z.ActiveEntry = &t
	}
	return nil
}

// -----------------------------------------------------------------------------
// Visit Log Repository
// -----------------------------------------------------------------------------

type VisitRepo struct {
	store *MemoryStorage
}

func NewVisitRepo(store *MemoryStorage) *VisitRepo {
	return &VisitRepo{store: store}
}

func (r *VisitRepo) Insert(ctx context.Context, log *domain.VisitLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.insertLocked(log)
}

func (r *VisitRepo) List(ctx context.Context, filter storage.VisitLogFilter) ([]*domain.VisitLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var wanted map[uuid.UUID]struct{}
	if len(filter.ZoneIDs) > 0 {
		wanted = make(map[uuid.UUID]struct{}, len(filter.ZoneIDs))
		for _, id := range filter.ZoneIDs {
			wanted[id] = struct{}{}
		}
	}

	var logs []*domain.VisitLog
	for _, l := range r.store.logs {
		if wanted != nil {
			if _, ok := wanted[l.ZoneID]; !ok {
				continue
			}
		}
		if !filter.From.IsZero() && l.Entry.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !l.Entry.Before(filter.To) {
			continue
		}
		c := *l
		logs = append(logs, &c)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Entry.After(logs[j].Entry) })
	if filter.Limit > 0 && len(logs) > filter.Limit {
		logs = logs[:filter.Limit]
	}
	return logs, nil
}

func (r *VisitRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.logs), nil
}

func (r *VisitRepo) DeleteAll(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.logs = nil
	return nil
}

func (r *VisitRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.logs[:0]
	for _, l := range r.store.logs {
		if l.Exit.Before(before) {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(r.store.logs) - len(kept)
	r.store.logs = kept
	return removed, nil
}

func (s *MemoryStorage) insertLocked(log *domain.VisitLog) error {
	if !log.Exit.After(log.Entry) {
		return fmt.Errorf("%w: visit exit must be after entry", domain.ErrValidation)
	}
	for _, l := range s.logs {
		if l.ID == log.ID {
			return fmt.Errorf("visit log %s already exists", log.ID)
		}
	}
	c := *log
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, &c)
	return nil
}

// -----------------------------------------------------------------------------
// Unit of Work
// -----------------------------------------------------------------------------

// unitOfWork stages operations and applies them under a single lock on
// Commit, so readers never observe a cleared zone without its log.
type unitOfWork struct {
	store *MemoryStorage
	ops   []func() error
	done  bool
}

func (s *MemoryStorage) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	return &unitOfWork{store: s}, nil
}

func (u *unitOfWork) SetActiveEntry(ctx context.Context, id uuid.UUID, entry *time.Time) error {
	if u.done {
		return fmt.Errorf("transaction already completed")
	}
	var staged *time.Time
	if entry != nil {
		t := *entry
		staged = &t
	}
	u.ops = append(u.ops, func() error { return u.store.setActiveEntryLocked(id, staged) })
	return nil
}

func (u *unitOfWork) InsertVisitLog(ctx context.Context, log *domain.VisitLog) error {
	if u.done {
		return fmt.Errorf("transaction already completed")
	}
	staged := *log
	u.ops = append(u.ops, func() error { return u.store.insertLocked(&staged) })
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("transaction already completed")
	}
	u.done = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	// Snapshot so a failing op leaves nothing half-applied.
	zones := make(map[uuid.UUID]*domain.Zone, len(u.store.zones))
	for id, z := range u.store.zones {
		zones[id] = z.Clone()
	}
	logs := append([]*domain.VisitLog(nil), u.store.logs...)

	for _, op := range u.ops {
		if err := op(); err != nil {
			u.store.zones = zones
			u.store.logs = logs
			return err
		}
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	u.done = true
	u.ops = nil
	return nil
}
