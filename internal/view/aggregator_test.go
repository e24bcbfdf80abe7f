package view

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
	"github.com/seamark/seamark/internal/registry"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

func newFixture(t *testing.T) (*Aggregator, *registry.Registry, *redisstore.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisstore.NewStore(client)
	reg := registry.New(store, index.NewMemoryIndex(), logger.New("error", false))
	return NewAggregator(reg, store), reg, store
}

func TestGroupDatasets(t *testing.T) {
	datasets := []domain.Dataset{
		{UID: "buoy-3", Group: "NDBC"},
		{UID: "glider-1", Group: "GLOS"},
		{UID: "buoy-1", Group: "NDBC"},
		{UID: "buoy-2", Group: "NDBC"},
	}

	groups := GroupDatasets(datasets)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	// Ordered by group key ascending.
	if groups[0].Key != "GLOS" || groups[1].Key != "NDBC" {
		t.Errorf("group order = [%s %s], want [GLOS NDBC]", groups[0].Key, groups[1].Key)
	}
	if groups[0].Count != 1 || groups[1].Count != 3 {
		t.Errorf("counts = [%d %d], want [1 3]", groups[0].Count, groups[1].Count)
	}
	// Members sorted by uid within a group.
	if groups[1].Datasets[0].UID != "buoy-1" {
		t.Errorf("first NDBC dataset = %q, want buoy-1", groups[1].Datasets[0].UID)
	}
}

func TestGroupDatasetsEmpty(t *testing.T) {
	if groups := GroupDatasets(nil); len(groups) != 0 {
		t.Errorf("GroupDatasets(nil) = %v, want empty", groups)
	}
}

func TestViewNotFound(t *testing.T) {
	agg, _, _ := newFixture(t)

	_, err := agg.View(context.Background(), "no-such-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("View() error = %v, want ErrNotFound", err)
	}
}

func TestViewComposesAllParts(t *testing.T) {
	agg, reg, store := newFixture(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, &domain.Service{
		Name:   "NDBC SOS",
		Type:   domain.ServiceTypeSOS,
		URL:    "https://sdf.ndbc.noaa.gov/sos/server.php",
		Active: true,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c := domain.NewCheckerResult()
	c.Set("title", domain.Scalar("Buoy Network"))
	result := domain.HarvestResult{
		ServiceID: id,
		Success:   true,
		Timestamp: time.Now().UTC(),
		Status:    "harvested 1 datasets",
	}
	if err := store.CommitHarvest(ctx, result, domain.Metamap{"checkerA": *c},
		[]domain.Dataset{{UID: "buoy-1", Group: "NDBC"}}); err != nil {
		t.Fatalf("CommitHarvest() error = %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i, reachable := range []bool{true, true, false} {
		rec := domain.PingRecord{
			ServiceID: id,
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Reachable: reachable,
		}
		if err := store.AppendPing(ctx, rec); err != nil {
			t.Fatalf("AppendPing() error = %v", err)
		}
	}

	v, err := agg.View(ctx, id)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	if v.Service.ID != id {
		t.Errorf("view service id = %q", v.Service.ID)
	}
	if v.Harvest == nil || !v.Harvest.Success {
		t.Error("view harvest missing or unsuccessful")
	}
	if len(v.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(v.Messages))
	}
	if _, ok := v.Metamap["checkerA"]; !ok {
		t.Error("metamap missing from view")
	}
	if len(v.DatasetGroups) != 1 || v.DatasetGroups[0].Key != "NDBC" {
		t.Errorf("dataset groups = %+v", v.DatasetGroups)
	}
	if len(v.Pings) != 3 {
		t.Errorf("pings = %d, want 3", len(v.Pings))
	}
	// Last reachable probe was the second one.
	if v.LastGoodPing == nil || !v.LastGoodPing.Equal(now.Add(time.Minute)) {
		t.Errorf("LastGoodPing = %v, want %v", v.LastGoodPing, now.Add(time.Minute))
	}
}

func TestViewNeverHarvested(t *testing.T) {
	agg, reg, _ := newFixture(t)
	ctx := context.Background()

	id, err := reg.Register(ctx, &domain.Service{
		Name: "fresh service",
		Type: domain.ServiceTypeDAP,
		URL:  "https://example.gov/thredds/dodsC/data",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	v, err := agg.View(ctx, id)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Harvest != nil {
		t.Error("fresh service should have no harvest result")
	}
	if len(v.DatasetGroups) != 0 || len(v.Pings) != 0 {
		t.Error("fresh service should have empty inventory and ping series")
	}
}
