package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/index"
	"github.com/seamark/seamark/internal/logger"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

func newTestRegistry(t *testing.T) (*Registry, *redisstore.Store, *index.MemoryIndex) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisstore.NewStore(client)
	idx := index.NewMemoryIndex()
	return New(store, idx, logger.New("error", false)), store, idx
}

func validService() *domain.Service {
	return &domain.Service{
		Name:     "NDBC SOS",
		Provider: "NOAA",
		Type:     domain.ServiceTypeSOS,
		URL:      "https://sdf.ndbc.noaa.gov/sos/server.php",
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, validService())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if id == "" {
		t.Fatal("Register() returned empty id")
	}

	svc, err := reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if svc.Name != "NDBC SOS" || svc.Type != domain.ServiceTypeSOS {
		t.Errorf("Get() = %+v", svc)
	}
	if svc.CreatedAt.IsZero() || svc.UpdatedAt.IsZero() {
		t.Error("Register() did not stamp timestamps")
	}
	if svc.Active {
		t.Error("service registered without Active set should start inactive")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		svc  *domain.Service
	}{
		{"missing name", &domain.Service{Type: domain.ServiceTypeSOS, URL: "https://a.example/sos"}},
		{"missing url", &domain.Service{Name: "x", Type: domain.ServiceTypeSOS}},
		{"relative url", &domain.Service{Name: "x", Type: domain.ServiceTypeSOS, URL: "sos/server.php"}},
		{"unknown type", &domain.Service{Name: "x", Type: "FTP", URL: "https://a.example/sos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Register(ctx, tt.svc); err == nil {
				t.Error("Register() accepted invalid service")
			}
		})
	}
}

func TestRegisterNormalizesTypeAlias(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	svc := validService()
	svc.Type = "OPENDAP"
	id, err := reg.Register(ctx, svc)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Type != domain.ServiceTypeDAP {
		t.Errorf("type = %q, want %q", got.Type, domain.ServiceTypeDAP)
	}
}

func TestGetNotFound(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Get(context.Background(), "no-such-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGetFallsBackToStore(t *testing.T) {
	reg, store, idx := newTestRegistry(t)
	ctx := context.Background()

	svc := validService()
	svc.ID = "pre-existing"
	svc.CreatedAt = time.Now().UTC()
	svc.UpdatedAt = svc.CreatedAt
	if err := store.SaveService(ctx, svc); err != nil {
		t.Fatalf("SaveService() error = %v", err)
	}

	// Not in the index yet; Get must reach through to the store.
	if _, ok := idx.Get("pre-existing"); ok {
		t.Fatal("index unexpectedly warm")
	}
	got, err := reg.Get(ctx, "pre-existing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != svc.Name {
		t.Errorf("Get() = %+v", got)
	}
	if _, ok := idx.Get("pre-existing"); !ok {
		t.Error("store fallback did not backfill the index")
	}
}

func TestLoadPopulatesIndex(t *testing.T) {
	reg, store, idx := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		svc := validService()
		svc.ID = name
		svc.Name = name
		if err := store.SaveService(ctx, svc); err != nil {
			t.Fatalf("SaveService() error = %v", err)
		}
	}

	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Count() != 3 {
		t.Errorf("index count = %d, want 3", idx.Count())
	}
}

func TestUpdateFields(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, validService())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	name := "Renamed Service"
	contact := "ops@example.gov"
	svc, err := reg.Update(ctx, id, ServiceUpdate{Name: &name, Contact: &contact})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if svc.Name != name || svc.Contact != contact {
		t.Errorf("Update() = %+v", svc)
	}
	// Untouched fields survive.
	if svc.Provider != "NOAA" {
		t.Errorf("Provider = %q, want NOAA", svc.Provider)
	}
	if !svc.UpdatedAt.After(svc.CreatedAt) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestUpdateTypeLockedAfterHarvest(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, validService())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Type is editable while nothing has been harvested.
	wms := domain.ServiceTypeWMS
	if _, err := reg.Update(ctx, id, ServiceUpdate{Type: &wms}); err != nil {
		t.Fatalf("Update() type before harvest error = %v", err)
	}

	result := domain.HarvestResult{ServiceID: id, Success: true, Timestamp: time.Now().UTC(), Status: "ok"}
	if err := store.CommitHarvest(ctx, result, domain.Metamap{},
		[]domain.Dataset{{UID: "layer-1", Group: "g"}}); err != nil {
		t.Fatalf("CommitHarvest() error = %v", err)
	}

	sos := domain.ServiceTypeSOS
	if _, err := reg.Update(ctx, id, ServiceUpdate{Type: &sos}); !errors.Is(err, domain.ErrTypeLocked) {
		t.Errorf("Update() type after harvest error = %v, want ErrTypeLocked", err)
	}
}

func TestSetActiveIdempotent(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, validService())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := reg.SetActive(ctx, id, true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	svc, _ := reg.Get(ctx, id)
	stamp := svc.UpdatedAt

	// Second enable is a no-op and must not rewrite the record.
	if err := reg.SetActive(ctx, id, true); err != nil {
		t.Fatalf("repeated SetActive(true) error = %v", err)
	}
	svc, _ = reg.Get(ctx, id)
	if !svc.UpdatedAt.Equal(stamp) {
		t.Error("idempotent SetActive rewrote UpdatedAt")
	}

	if err := reg.SetActive(ctx, id, false); err != nil {
		t.Fatalf("SetActive(false) error = %v", err)
	}
	svc, _ = reg.Get(ctx, id)
	if svc.Active {
		t.Error("SetActive(false) left service active")
	}
}

func TestActiveSnapshot(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	activeSvc := validService()
	activeSvc.Active = true
	activeID, err := reg.Register(ctx, activeSvc)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := reg.Register(ctx, validService()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	snap := reg.ActiveSnapshot()
	if len(snap) != 1 || snap[0].ID != activeID {
		t.Errorf("ActiveSnapshot() = %+v, want only %s", snap, activeID)
	}
}

func TestDeleteCascades(t *testing.T) {
	reg, store, idx := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, validService())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	result := domain.HarvestResult{ServiceID: id, Success: true, Timestamp: time.Now().UTC(), Status: "ok"}
	if err := store.CommitHarvest(ctx, result, domain.Metamap{},
		[]domain.Dataset{{UID: "d1"}}); err != nil {
		t.Fatalf("CommitHarvest() error = %v", err)
	}

	if err := reg.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := idx.Get(id); ok {
		t.Error("Delete() left service in index")
	}
	if _, err := reg.Get(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := reg.Delete(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
