package scheduler

import (
	"context"
	"time"

	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

const (
	// DefaultPingMaxAge is the time-based retention bound for ping
	// records when none is configured.
	DefaultPingMaxAge = 7 * 24 * time.Hour
)

// RetentionPruner periodically drops ping records older than the
// configured age. The count bound is enforced inline on append; this
// loop covers services that ping rarely enough to stay under it.
type RetentionPruner struct {
	registry *registry.Registry
	store    *redisstore.Store
	logger   logger.Logger
	interval time.Duration
	maxAge   time.Duration
	stopCh   chan struct{}
}

// NewRetentionPruner creates a retention pruner.
func NewRetentionPruner(
	reg *registry.Registry,
	store *redisstore.Store,
	log logger.Logger,
	interval time.Duration,
	maxAge time.Duration,
) *RetentionPruner {
	if maxAge == 0 {
		maxAge = DefaultPingMaxAge
	}
	return &RetentionPruner{
		registry: reg,
		store:    store,
		logger:   log,
		interval: interval,
		maxAge:   maxAge,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic pruning loop.
func (rp *RetentionPruner) Start(ctx context.Context) error {
	// Run immediately on start
	if err := rp.Collect(ctx); err != nil {
		rp.logger.Warn("initial retention pruning failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(rp.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rp.Collect(ctx); err != nil {
					rp.logger.Error("retention pruning failed",
						logger.Error(err))
				}
			case <-rp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the pruner.
func (rp *RetentionPruner) Stop() {
	close(rp.stopCh)
}

// Collect prunes expired ping records for every registered service,
// active or not: history of a stopped service still ages out.
func (rp *RetentionPruner) Collect(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-rp.maxAge)
	total := 0

	for _, svc := range rp.registry.List() {
		pruned, err := rp.store.PrunePingsBefore(ctx, svc.ID, cutoff)
		if err != nil {
			rp.logger.Warn("failed to prune pings",
				logger.String("service_id", svc.ID),
				logger.Error(err))
			continue
		}
		total += pruned
	}

	if total > 0 {
		rp.logger.Info("retention pruning completed",
			logger.Int("pings_pruned", total))
	} else {
		rp.logger.Debug("no expired ping records")
	}
	return nil
}
