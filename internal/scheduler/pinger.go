package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

// Pinger issues lightweight reachability probes against every active
// service on a fixed cadence, independent of harvest cycles. Probes
// run isolated per service: one slow or failing endpoint never delays
// the others. Failed probes are not retried within a tick.
type Pinger struct {
	registry      *registry.Registry
	store         *redisstore.Store
	logger        logger.Logger
	interval      time.Duration
	timeout       time.Duration
	maxConcurrent int
	stopCh        chan struct{}
}

// NewPinger creates a ping monitor.
func NewPinger(
	reg *registry.Registry,
	store *redisstore.Store,
	log logger.Logger,
	interval time.Duration,
	timeout time.Duration,
	maxConcurrent int,
) *Pinger {
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	return &Pinger{
		registry:      reg,
		store:         store,
		logger:        log,
		interval:      interval,
		timeout:       timeout,
		maxConcurrent: maxConcurrent,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the probe loop.
func (p *Pinger) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.tick(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the probe loop.
func (p *Pinger) Stop() {
	close(p.stopCh)
}

// tick probes every service in the current active snapshot. Services
// deactivated since the previous tick are no longer in the snapshot,
// so no record is written for them.
func (p *Pinger) tick(ctx context.Context) {
	snapshot := p.registry.ActiveSnapshot()
	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.maxConcurrent)

	for _, svc := range snapshot {
		wg.Add(1)
		go func(svc *domain.Service) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			p.probe(ctx, svc)
		}(svc)
	}
	wg.Wait()

	p.logger.Debug("ping tick completed",
		logger.Int("services", len(snapshot)))
}

func (p *Pinger) probe(ctx context.Context, svc *domain.Service) {
	rec := domain.Probe(ctx, svc.URL, p.timeout)
	rec.ServiceID = svc.ID

	storeCtx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()
	if err := p.store.AppendPing(storeCtx, rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Debug("service deleted during probe, record dropped",
				logger.String("service_id", svc.ID))
			return
		}
		p.logger.Error("failed to record ping",
			logger.String("service_id", svc.ID),
			logger.Error(err))
		return
	}

	if !rec.Reachable {
		p.logger.Warn("service unreachable",
			logger.String("service_id", svc.ID),
			logger.Int("status_code", rec.StatusCode))
	}
}
