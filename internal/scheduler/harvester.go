package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/extract"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

// storeWriteTimeout bounds outcome writes made after a harvest or
// probe finishes.
const storeWriteTimeout = 10 * time.Second

// ExtractorFactory selects the extractor for a service type. Tests
// substitute fakes through it.
type ExtractorFactory func(t domain.ServiceType) (extract.Extractor, error)

// HarvesterOptions configures the harvest scheduler.
type HarvesterOptions struct {
	// Interval between periodic harvest ticks.
	Interval time.Duration
	// Timeout is the hard per-harvest deadline; exceeding it records a
	// timeout failure.
	Timeout time.Duration
	// MaxConcurrent bounds harvests running in parallel across
	// services.
	MaxConcurrent int
	// Factory overrides extractor selection; nil uses extract.ForType
	// with Timeout as the fetch bound.
	Factory ExtractorFactory
}

// Harvester runs harvests: periodically for every active service, and
// on demand through RequestHarvest. At most one harvest runs per
// service at a time; concurrent requests are rejected, not queued.
type Harvester struct {
	registry *registry.Registry
	store    *redisstore.Store
	logger   logger.Logger
	interval time.Duration
	timeout  time.Duration
	factory  ExtractorFactory

	sem    chan struct{}
	stopCh chan struct{}

	mu      sync.Mutex
	running map[string]bool
}

// NewHarvester creates a harvest scheduler.
func NewHarvester(
	reg *registry.Registry,
	store *redisstore.Store,
	log logger.Logger,
	opts HarvesterOptions,
) *Harvester {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	factory := opts.Factory
	if factory == nil {
		factory = func(t domain.ServiceType) (extract.Extractor, error) {
			return extract.ForType(t, opts.Timeout)
		}
	}

	return &Harvester{
		registry: reg,
		store:    store,
		logger:   log,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		factory:  factory,
		sem:      make(chan struct{}, opts.MaxConcurrent),
		stopCh:   make(chan struct{}),
		running:  make(map[string]bool),
	}
}

// Start begins the periodic harvest loop.
func (h *Harvester) Start(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.tick(ctx)
			case <-h.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the periodic loop. In-flight harvests finish on their own.
func (h *Harvester) Stop() {
	close(h.stopCh)
}

// tick requests a harvest for every active harvestable service.
// The active set is snapshotted once, so deactivations are observed by
// the next tick at the latest.
func (h *Harvester) tick(ctx context.Context) {
	for _, svc := range h.registry.ActiveSnapshot() {
		if svc.Type == domain.ServiceTypeOther {
			// Nothing to harvest, ping monitoring still applies.
			continue
		}
		if err := h.RequestHarvest(ctx, svc.ID); err != nil {
			if errors.Is(err, domain.ErrAlreadyRunning) {
				h.logger.Debug("harvest still running, skipping tick",
					logger.String("service_id", svc.ID))
				continue
			}
			h.logger.Error("failed to request harvest",
				logger.String("service_id", svc.ID),
				logger.Error(err))
		}
	}
}

// RequestHarvest starts a harvest for the service and returns without
// waiting for completion. Returns ErrNotFound for unknown ids and
// ErrAlreadyRunning when a harvest for the service is in flight.
func (h *Harvester) RequestHarvest(ctx context.Context, id string) error {
	svc, err := h.registry.Get(ctx, id)
	if err != nil {
		return err
	}

	if !h.acquire(id) {
		return domain.ErrAlreadyRunning
	}

	go h.run(svc)
	return nil
}

// Running reports whether a harvest is in flight for the service.
func (h *Harvester) Running(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running[id]
}

func (h *Harvester) acquire(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running[id] {
		return false
	}
	h.running[id] = true
	return true
}

func (h *Harvester) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.running, id)
}

// run executes one harvest attempt. The harvest context is detached
// from the caller (a harvest outlives its trigger request) and bounded
// by the hard timeout; extraction is cancelled cooperatively at its
// next network read once the deadline passes.
func (h *Harvester) run(svc *domain.Service) {
	defer h.release(svc.ID)

	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	start := time.Now().UTC()

	ex, err := h.factory(svc.Type)
	if err != nil {
		h.recordFailure(svc, start, "no extractor", err)
		return
	}

	metamap, datasets, err := ex.Extract(ctx, svc)
	if err != nil {
		status := "harvest failed"
		if isTimeout(err) {
			status = "timeout"
			err = fmt.Errorf("harvest timed out after %s: %w", h.timeout, err)
		}
		h.recordFailure(svc, start, status, err)
		return
	}

	result := domain.HarvestResult{
		ServiceID: svc.ID,
		Success:   true,
		Timestamp: time.Now().UTC(),
		Status:    fmt.Sprintf("harvested %d datasets", len(datasets)),
	}
	// Fresh context for the commit: the harvest context may already be
	// past its deadline.
	storeCtx, storeCancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer storeCancel()
	if err := h.store.CommitHarvest(storeCtx, result, metamap, datasets); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Info("service deleted during harvest, result discarded",
				logger.String("service_id", svc.ID))
			return
		}
		h.logger.Error("failed to commit harvest",
			logger.String("service_id", svc.ID),
			logger.Error(err))
		return
	}

	h.logger.Info("harvest succeeded",
		logger.String("service_id", svc.ID),
		logger.Int("datasets", len(datasets)),
		logger.Duration("elapsed", time.Since(start)))
}

// recordFailure writes a failed HarvestResult. Metamap and datasets
// are left untouched so the last-known-good inventory stays visible.
func (h *Harvester) recordFailure(svc *domain.Service, start time.Time, status string, cause error) {
	result := domain.HarvestResult{
		ServiceID: svc.ID,
		Success:   false,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Message:   domain.Truncate(cause.Error(), domain.MaxMessageLen),
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer storeCancel()
	if err := h.store.RecordFailure(storeCtx, result); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Info("service deleted during harvest, failure discarded",
				logger.String("service_id", svc.ID))
			return
		}
		h.logger.Error("failed to record harvest failure",
			logger.String("service_id", svc.ID),
			logger.Error(err))
		return
	}

	h.logger.Warn("harvest failed",
		logger.String("service_id", svc.ID),
		logger.String("status", status),
		logger.Duration("elapsed", time.Since(start)),
		logger.Error(cause))
}

// isTimeout matches deadline and network timeout errors anywhere in
// the chain.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
