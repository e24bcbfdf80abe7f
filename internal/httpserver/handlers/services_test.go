package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/extract"
	"github.com/seamark/seamark/internal/httpserver/deps"
	"github.com/seamark/seamark/internal/index"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
	"github.com/seamark/seamark/internal/scheduler"
	redisstore "github.com/seamark/seamark/internal/store/redis"
	"github.com/seamark/seamark/internal/view"
)

type stubExtractor struct {
	block chan struct{}
}

func (s *stubExtractor) Extract(ctx context.Context, svc *domain.Service) (domain.Metamap, []domain.Dataset, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, nil, &domain.TransportError{URL: svc.URL, Err: ctx.Err()}
		}
	}
	return domain.Metamap{}, []domain.Dataset{{UID: "d1", Group: "g"}}, nil
}

type fixture struct {
	router *chi.Mux
	reg    *registry.Registry
	store  *redisstore.Store
	stub   *stubExtractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.New("error", false)
	store := redisstore.NewStore(client)
	idx := index.NewMemoryIndex()
	reg := registry.New(store, idx, log)

	stub := &stubExtractor{}
	h := scheduler.NewHarvester(reg, store, log, scheduler.HarvesterOptions{
		Interval: time.Hour,
		Timeout:  5 * time.Second,
		Factory: func(domain.ServiceType) (extract.Extractor, error) {
			return stub, nil
		},
	})

	d := deps.Deps{
		Logger:      log,
		StartTime:   time.Now(),
		TimeNow:     time.Now,
		RedisClient: client,
		MemoryIndex: idx,
		Registry:    reg,
		Harvester:   h,
		Aggregator:  view.NewAggregator(reg, store),
	}

	r := chi.NewRouter()
	r.Route("/api/services", func(r chi.Router) {
		r.Post("/", CreateService(d))
		r.Get("/", ListServices(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetService(d))
			r.Patch("/", UpdateService(d))
			r.Delete("/", DeleteService(d))
			r.Post("/start", StartService(d))
			r.Post("/stop", StopService(d))
			r.Post("/harvest", TriggerHarvest(d))
		})
	})
	r.Get("/healthz", Healthz(d))
	r.Get("/readyz", Readyz(d))

	return &fixture{router: r, reg: reg, store: store, stub: stub}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createService(t *testing.T) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/services", map[string]any{
		"name":         "NDBC SOS",
		"provider":     "NOAA",
		"service_type": "SOS",
		"url":          "https://sdf.ndbc.noaa.gov/sos/server.php",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.ID
}

func TestCreateService(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)
	if id == "" {
		t.Fatal("create returned empty id")
	}
}

func TestCreateServiceRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"service_type": "SOS", "url": "https://a.example/sos"}},
		{"bad type", map[string]any{"name": "x", "service_type": "FTP", "url": "https://a.example/sos"}},
		{"relative url", map[string]any{"name": "x", "service_type": "SOS", "url": "sos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/services", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateServiceMalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/services", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListServices(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/services", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body == "null\n" {
		t.Error("empty list serialized as null, want []")
	}

	f.createService(t)
	rec = f.do(t, http.MethodGet, "/api/services", nil)
	var services []domain.Service
	if err := json.Unmarshal(rec.Body.Bytes(), &services); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(services) != 1 {
		t.Errorf("list = %d services, want 1", len(services))
	}
}

func TestGetServiceView(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)

	result := domain.HarvestResult{ServiceID: id, Success: true, Timestamp: time.Now().UTC(), Status: "ok"}
	if err := f.store.CommitHarvest(context.Background(), result, domain.Metamap{},
		[]domain.Dataset{{UID: "buoy-1", Group: "NDBC"}}); err != nil {
		t.Fatalf("CommitHarvest() error = %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/services/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var v view.ServiceView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if v.Service == nil || v.Service.ID != id {
		t.Errorf("view service = %+v", v.Service)
	}
	if len(v.DatasetGroups) != 1 {
		t.Errorf("dataset groups = %+v", v.DatasetGroups)
	}
}

func TestGetServiceNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/services/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateService(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)

	rec := f.do(t, http.MethodPatch, "/api/services/"+id, map[string]any{"name": "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var svc domain.Service
	if err := json.Unmarshal(rec.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode service: %v", err)
	}
	if svc.Name != "Renamed" {
		t.Errorf("name = %q", svc.Name)
	}
	if svc.Provider != "NOAA" {
		t.Errorf("partial update touched provider: %q", svc.Provider)
	}
}

func TestUpdateServiceTypeConflict(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)

	result := domain.HarvestResult{ServiceID: id, Success: true, Timestamp: time.Now().UTC(), Status: "ok"}
	if err := f.store.CommitHarvest(context.Background(), result, domain.Metamap{},
		[]domain.Dataset{{UID: "d1"}}); err != nil {
		t.Fatalf("CommitHarvest() error = %v", err)
	}

	rec := f.do(t, http.MethodPatch, "/api/services/"+id, map[string]any{"service_type": "WMS"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestDeleteService(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)

	rec := f.do(t, http.MethodDelete, "/api/services/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/api/services/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestStartStopService(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/api/services/"+id+"/start", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start status = %d", rec.Code)
	}
	svc, err := f.reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !svc.Active {
		t.Error("start did not activate monitoring")
	}

	rec = f.do(t, http.MethodPost, "/api/services/"+id+"/stop", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("stop status = %d", rec.Code)
	}
	svc, _ = f.reg.Get(ctx, id)
	if svc.Active {
		t.Error("stop did not deactivate monitoring")
	}
}

func TestTriggerHarvest(t *testing.T) {
	f := newFixture(t)
	id := f.createService(t)

	rec := f.do(t, http.MethodPost, "/api/services/"+id+"/harvest", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r, _ := f.store.LatestHarvest(context.Background(), id); r != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("accepted harvest never wrote a result")
}

func TestTriggerHarvestConflict(t *testing.T) {
	f := newFixture(t)
	f.stub.block = make(chan struct{})
	defer close(f.stub.block)
	id := f.createService(t)

	rec := f.do(t, http.MethodPost, "/api/services/"+id+"/harvest", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/services/"+id+"/harvest", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", rec.Code)
	}
}

func TestTriggerHarvestNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/services/no-such-id/harvest", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("healthz status = %v", resp["status"])
	}
}

func TestReadyz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp readyzResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if !resp.Ready {
		t.Error("readyz not ready with live redis")
	}
}
