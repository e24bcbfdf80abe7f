package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/domain"
)

// CommitHarvest records a successful harvest atomically: the result is
// saved, its message appended to the bounded log, the metamap fully
// replaced, and the dataset hash reconciled against the new inventory.
// Datasets absent from this harvest are removed, unchanged ones are
// left untouched, new ones inserted. A harvest finishing after its
// service was deleted is discarded with ErrNotFound.
func (s *Store) CommitHarvest(
	ctx context.Context,
	result domain.HarvestResult,
	metamap domain.Metamap,
	datasets []domain.Dataset,
) error {
	lock := s.serviceLock(result.ServiceID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireService(ctx, result.ServiceID); err != nil {
		return err
	}

	resultData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal harvest result: %w", err)
	}
	logData, err := json.Marshal(result.LogEntry())
	if err != nil {
		return fmt.Errorf("failed to marshal harvest message: %w", err)
	}
	metaData, err := json.Marshal(metamap)
	if err != nil {
		return fmt.Errorf("failed to marshal metamap: %w", err)
	}

	existing, err := s.client.HGetAll(ctx, DatasetsKey(result.ServiceID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read datasets for reconcile: %w", err)
	}

	want := make(map[string]string, len(datasets))
	for _, d := range datasets {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal dataset %s: %w", d.UID, err)
		}
		want[d.UID] = string(data)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, HarvestKey(result.ServiceID), resultData, 0)
	pipe.LPush(ctx, HarvestLogKey(result.ServiceID), logData)
	pipe.LTrim(ctx, HarvestLogKey(result.ServiceID), 0, s.harvestLogLimit-1)
	pipe.Set(ctx, MetamapKey(result.ServiceID), metaData, 0)

	for uid := range existing {
		if _, keep := want[uid]; !keep {
			pipe.HDel(ctx, DatasetsKey(result.ServiceID), uid)
		}
	}
	for uid, data := range want {
		if existing[uid] == data {
			continue
		}
		pipe.HSet(ctx, DatasetsKey(result.ServiceID), uid, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to commit harvest: %w", err)
	}
	return nil
}

// RecordFailure records a failed harvest attempt. Only the result and
// message log are touched: metamap and datasets keep their
// last-known-good content.
func (s *Store) RecordFailure(ctx context.Context, result domain.HarvestResult) error {
	lock := s.serviceLock(result.ServiceID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireService(ctx, result.ServiceID); err != nil {
		return err
	}

	resultData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal harvest result: %w", err)
	}
	logData, err := json.Marshal(result.LogEntry())
	if err != nil {
		return fmt.Errorf("failed to marshal harvest message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, HarvestKey(result.ServiceID), resultData, 0)
	pipe.LPush(ctx, HarvestLogKey(result.ServiceID), logData)
	pipe.LTrim(ctx, HarvestLogKey(result.ServiceID), 0, s.harvestLogLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record harvest failure: %w", err)
	}
	return nil
}

// LatestHarvest returns the most recent harvest result, or nil when
// the service has never been harvested.
func (s *Store) LatestHarvest(ctx context.Context, id string) (*domain.HarvestResult, error) {
	data, err := s.client.Get(ctx, HarvestKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get harvest result: %w", err)
	}

	var result domain.HarvestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal harvest result: %w", err)
	}
	return &result, nil
}

// HarvestMessages returns the bounded message history, newest first.
func (s *Store) HarvestMessages(ctx context.Context, id string) ([]domain.HarvestMessage, error) {
	raw, err := s.client.LRange(ctx, HarvestLogKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest messages: %w", err)
	}

	out := make([]domain.HarvestMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.HarvestMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal harvest message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// GetMetamap returns the current metamap, or nil when none exists.
func (s *Store) GetMetamap(ctx context.Context, id string) (domain.Metamap, error) {
	data, err := s.client.Get(ctx, MetamapKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metamap: %w", err)
	}

	var m domain.Metamap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metamap: %w", err)
	}
	return m, nil
}

// Datasets returns the current dataset inventory, sorted by uid for
// stable output.
func (s *Store) Datasets(ctx context.Context, id string) ([]domain.Dataset, error) {
	raw, err := s.client.HGetAll(ctx, DatasetsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get datasets: %w", err)
	}

	out := make([]domain.Dataset, 0, len(raw))
	for uid, item := range raw {
		var d domain.Dataset
		if err := json.Unmarshal([]byte(item), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dataset %s: %w", uid, err)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// HasDatasets reports whether any datasets have been harvested for the
// service. The registry uses it to lock the service type.
func (s *Store) HasDatasets(ctx context.Context, id string) (bool, error) {
	n, err := s.client.HLen(ctx, DatasetsKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count datasets: %w", err)
	}
	return n > 0, nil
}
