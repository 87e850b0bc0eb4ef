package postgres

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// TestMain applies migrations once when a test database is configured.
func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		os.Exit(m.Run())
	}
	if err := Migrate(context.Background(), url); err != nil {
		log.Fatalf("TestMain: run migrations: %v", err)
	}
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: url})
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `TRUNCATE visit_logs, zones`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return NewStore(db)
}

func testZone(name string) *domain.Zone {
	return &domain.Zone{
		Name:      name,
		Category:  domain.CategoryWork,
		Latitude:  52.52,
		Longitude: 13.405,
		Radius:    200,
	}
}

func TestZoneRepo_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	z := testZone("Office")
	if err := s.Zones().Create(ctx, z); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Zones().Get(ctx, z.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Office" || got.Radius != 200 || got.ActiveEntry != nil {
		t.Errorf("unexpected zone: %+v", got)
	}

	entry := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if err := s.Zones().SetActiveEntry(ctx, z.ID, &entry); err != nil {
		t.Fatalf("SetActiveEntry failed: %v", err)
	}

	z.Name = "Head Office"
	if err := s.Zones().Update(ctx, z); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ = s.Zones().Get(ctx, z.ID)
	if got.Name != "Head Office" {
		t.Errorf("expected rename, got %s", got.Name)
	}
	if got.ActiveEntry == nil || !got.ActiveEntry.Equal(entry) {
		t.Errorf("update must keep active entry, got %v", got.ActiveEntry)
	}

	if err := s.Zones().Delete(ctx, z.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Zones().Get(ctx, z.ID); !errors.Is(err, storage.ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
	if err := s.Zones().SetActiveEntry(ctx, z.ID, nil); !errors.Is(err, storage.ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound for missing zone, got %v", err)
	}
}

func TestVisitRepo_FiltersAndSurvivesDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, b := testZone("A Zone"), testZone("B Zone")
	_ = s.Zones().Create(ctx, a)
	_ = s.Zones().Create(ctx, b)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		la, _ := domain.NewVisitLog(a, start, start.Add(time.Hour))
		lb, _ := domain.NewVisitLog(b, start, start.Add(time.Hour))
		if err := s.Visits().Insert(ctx, la); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		_ = s.Visits().Insert(ctx, lb)
	}

	_ = s.Zones().Delete(ctx, a.ID)

	onlyA, err := s.Visits().List(ctx, storage.VisitLogFilter{ZoneIDs: []uuid.UUID{a.ID}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(onlyA) != 3 || onlyA[0].ZoneName != "A Zone" {
		t.Errorf("expected 3 logs for deleted zone A, got %d", len(onlyA))
	}

	window, _ := s.Visits().List(ctx, storage.VisitLogFilter{
		From:  base.Add(24 * time.Hour),
		To:    base.Add(48 * time.Hour),
		Limit: 1,
	})
	if len(window) != 1 {
		t.Errorf("expected 1 log with limit, got %d", len(window))
	}

	pruned, err := s.Visits().DeleteOlderThan(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 0 {
		t.Errorf("expected nothing pruned before base, got %d", pruned)
	}

	if err := s.Visits().DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Visits().Count(ctx); n != 0 {
		t.Errorf("expected 0 logs, got %d", n)
	}
}

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	z := testZone("Office")
	entry := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	z.ActiveEntry = &entry
	_ = s.Zones().Create(ctx, z)
	log, _ := domain.NewVisitLog(z, entry, entry.Add(time.Hour))

	// Rolled back: nothing applied.
	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = uow.SetActiveEntry(ctx, z.ID, nil)
	_ = uow.InsertVisitLog(ctx, log)
	if err := uow.Rollback(); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Zones().Get(ctx, z.ID); got.ActiveEntry == nil {
		t.Error("rollback cleared active entry")
	}

	// Committed: both applied.
	uow, _ = s.Begin(ctx)
	defer func() { _ = uow.Rollback() }()
	if err := uow.SetActiveEntry(ctx, z.ID, nil); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertVisitLog(ctx, log); err != nil {
		t.Fatal(err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if got, _ := s.Zones().Get(ctx, z.ID); got.ActiveEntry != nil {
		t.Error("expected active entry cleared")
	}
	if n, _ := s.Visits().Count(ctx); n != 1 {
		t.Errorf("expected 1 log, got %d", n)
	}
	if err := uow.Commit(); err == nil {
		t.Error("expected error on second commit")
	}
}

func TestVisitRepo_RejectsNonPositiveDuration(t *testing.T) {
	// Runs without a database: validation happens before the query.
	repo := &VisitRepo{}
	at := time.Now()
	err := repo.Insert(context.Background(), &domain.VisitLog{ZoneID: uuid.New(), ZoneName: "X", Entry: at, Exit: at})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
