package zones_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage/memory"
	"github.com/vietddude/zonewatch/internal/tracking/zones"
)

// mockMonitor records calls in order. Set startErr to make registration fail.
type mockMonitor struct {
	calls    []string
	startErr error
}

func (m *mockMonitor) StartMonitoring(_ context.Context, z *domain.Zone) error {
	m.calls = append(m.calls, "start:"+z.Name)
	return m.startErr
}

func (m *mockMonitor) StopMonitoring(_ context.Context, id uuid.UUID) {
	m.calls = append(m.calls, "stop:"+id.String())
}

// compile-time check: mockMonitor must satisfy zones.RegionMonitor.
var _ zones.RegionMonitor = (*mockMonitor)(nil)

// ---- helpers ---------------------------------------------------------------

func validZone() domain.Zone {
	return domain.Zone{
		Name:      "Office",
		Category:  domain.CategoryWork,
		Latitude:  37.7749,
		Longitude: -122.4194,
		Radius:    150,
	}
}

func newService() (*zones.Service, *memory.MemoryStorage, *mockMonitor) {
	store := memory.NewMemoryStorage()
	mon := &mockMonitor{}
	return zones.NewService(store.Zones(), mon), store, mon
}

// ---- Create ----------------------------------------------------------------

func TestZoneService_Create_Valid(t *testing.T) {
	svc, store, mon := newService()

	got, err := svc.Create(context.Background(), validZone())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, []string{"start:Office"}, mon.calls)

	stored, err := store.Zones().Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Office", stored.Name)
	assert.Nil(t, stored.ActiveEntry)
}

func TestZoneService_Create_DefaultsCategoryAndTrimsName(t *testing.T) {
	svc, _, _ := newService()

	z := validZone()
	z.Name = "  Gym  "
	z.Category = ""

	got, err := svc.Create(context.Background(), z)

	require.NoError(t, err)
	assert.Equal(t, "Gym", got.Name)
	assert.Equal(t, domain.CategoryOther, got.Category)
}

func TestZoneService_Create_IgnoresClientEntryState(t *testing.T) {
	svc, _, _ := newService()

	z := validZone()
	now := time.Now()
	z.ActiveEntry = &now

	got, err := svc.Create(context.Background(), z)

	require.NoError(t, err)
	assert.Nil(t, got.ActiveEntry)
}

func TestZoneService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(z *domain.Zone)
	}{
		{"short name", func(z *domain.Zone) { z.Name = " A " }},
		{"radius too small", func(z *domain.Zone) { z.Radius = 49 }},
		{"radius too large", func(z *domain.Zone) { z.Radius = 1001 }},
		{"latitude out of range", func(z *domain.Zone) { z.Latitude = 91 }},
		{"longitude out of range", func(z *domain.Zone) { z.Longitude = -181 }},
		{"unknown category", func(z *domain.Zone) { z.Category = "beach" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, mon := newService()
			z := validZone()
			tt.mutate(&z)

			_, err := svc.Create(context.Background(), z)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, mon.calls)
		})
	}
}

func TestZoneService_Create_RegistrationFailureIsNotFatal(t *testing.T) {
	store := memory.NewMemoryStorage()
	mon := &mockMonitor{startErr: errors.New("capability unavailable")}
	svc := zones.NewService(store.Zones(), mon)

	got, err := svc.Create(context.Background(), validZone())

	require.NoError(t, err)
	_, err = store.Zones().Get(context.Background(), got.ID)
	assert.NoError(t, err)
}

// ---- Update ----------------------------------------------------------------

func TestZoneService_Update_RestartsMonitoring(t *testing.T) {
	svc, _, mon := newService()
	created, err := svc.Create(context.Background(), validZone())
	require.NoError(t, err)
	mon.calls = nil

	edit := *created
	edit.Name = "Head Office"
	edit.Radius = 300

	got, err := svc.Update(context.Background(), edit)

	require.NoError(t, err)
	assert.Equal(t, "Head Office", got.Name)
	assert.Equal(t, 300.0, got.Radius)
	assert.Equal(t, []string{"stop:" + created.ID.String(), "start:Head Office"}, mon.calls)
}

func TestZoneService_Update_KeepsActiveEntry(t *testing.T) {
	svc, store, _ := newService()
	created, err := svc.Create(context.Background(), validZone())
	require.NoError(t, err)

	entry := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Zones().SetActiveEntry(context.Background(), created.ID, &entry))

	edit := *created
	edit.ActiveEntry = nil
	got, err := svc.Update(context.Background(), edit)

	require.NoError(t, err)
	require.NotNil(t, got.ActiveEntry)
	assert.True(t, got.ActiveEntry.Equal(entry))
}

func TestZoneService_Update_NotFound(t *testing.T) {
	svc, _, mon := newService()

	z := validZone()
	z.ID = uuid.New()
	_, err := svc.Update(context.Background(), z)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, mon.calls)
}

func TestZoneService_Update_Validation(t *testing.T) {
	svc, _, _ := newService()
	created, err := svc.Create(context.Background(), validZone())
	require.NoError(t, err)

	edit := *created
	edit.Radius = 20
	_, err = svc.Update(context.Background(), edit)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- Delete ----------------------------------------------------------------

func TestZoneService_Delete_KeepsLogs(t *testing.T) {
	svc, store, mon := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, validZone())
	require.NoError(t, err)

	entry := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	log, err := domain.NewVisitLog(created, entry, entry.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Visits().Insert(ctx, log))
	mon.calls = nil

	require.NoError(t, svc.Delete(ctx, created.ID))

	assert.Equal(t, []string{"stop:" + created.ID.String()}, mon.calls)
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := store.Visits().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestZoneService_Delete_NotFound(t *testing.T) {
	svc, _, _ := newService()

	err := svc.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- List ------------------------------------------------------------------

func TestZoneService_List_EmptyIsNonNil(t *testing.T) {
	svc, _, _ := newService()

	got, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
