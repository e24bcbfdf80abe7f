package index

import (
	"testing"

	"github.com/seamark/seamark/internal/domain"
)

func svc(id string, active bool) *domain.Service {
	return &domain.Service{
		ID:     id,
		Name:   id,
		Type:   domain.ServiceTypeSOS,
		URL:    "https://" + id + ".example.gov/sos",
		Active: active,
	}
}

func TestPutGetDelete(t *testing.T) {
	idx := NewMemoryIndex()

	idx.Put(svc("a", true))
	got, ok := idx.Get("a")
	if !ok || got.ID != "a" {
		t.Fatalf("Get(a) = %+v, %v", got, ok)
	}

	// Mutating the returned copy must not leak into the index.
	got.Name = "mutated"
	again, _ := idx.Get("a")
	if again.Name != "a" {
		t.Error("Get() returned a live reference, want a copy")
	}

	idx.Delete("a")
	if _, ok := idx.Get("a"); ok {
		t.Error("Get() after Delete() still found the service")
	}
}

func TestReplace(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Put(svc("stale", true))

	idx.Replace([]*domain.Service{svc("a", true), svc("b", false)})

	if idx.Count() != 2 {
		t.Errorf("Count() = %d, want 2", idx.Count())
	}
	if _, ok := idx.Get("stale"); ok {
		t.Error("Replace() kept a stale entry")
	}
	if idx.LastLoad().IsZero() {
		t.Error("Replace() did not stamp LastLoad")
	}
}

func TestActiveSnapshot(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Put(svc("on", true))
	idx.Put(svc("off", false))

	snap := idx.ActiveSnapshot()
	if len(snap) != 1 || snap[0].ID != "on" {
		t.Fatalf("ActiveSnapshot() = %+v, want only on", snap)
	}

	if all := idx.All(); len(all) != 2 {
		t.Errorf("All() = %d services, want 2", len(all))
	}
}
