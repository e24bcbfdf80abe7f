package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// AppendPing appends one probe outcome to the service's ping series
// and trims it to the count bound. Newest records sit at the head, so
// trimming evicts the oldest first. A record for a deleted service is
// dropped with ErrNotFound.
func (s *Store) AppendPing(ctx context.Context, rec domain.PingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ping record: %w", err)
	}

	lock := s.serviceLock(rec.ServiceID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireService(ctx, rec.ServiceID); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, PingsKey(rec.ServiceID), data)
	pipe.LTrim(ctx, PingsKey(rec.ServiceID), 0, s.pingLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append ping: %w", err)
	}
	return nil
}

// Pings returns the ping series in chronological order, oldest first.
func (s *Store) Pings(ctx context.Context, id string) ([]domain.PingRecord, error) {
	raw, err := s.client.LRange(ctx, PingsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pings: %w", err)
	}

	out := make([]domain.PingRecord, len(raw))
	for i, item := range raw {
		var rec domain.PingRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ping record: %w", err)
		}
		// LPush stores newest at the head; reverse while decoding.
		out[len(raw)-1-i] = rec
	}
	return out, nil
}

// PrunePingsBefore drops ping records older than cutoff. The retention
// pruner calls it on its own cadence for time-based eviction; the
// count bound is enforced inline by AppendPing.
func (s *Store) PrunePingsBefore(ctx context.Context, id string, cutoff time.Time) (int, error) {
	lock := s.serviceLock(id)
	lock.Lock()
	defer lock.Unlock()

	raw, err := s.client.LRange(ctx, PingsKey(id), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pings for pruning: %w", err)
	}

	kept := make([]interface{}, 0, len(raw))
	for _, item := range raw {
		var rec domain.PingRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return 0, fmt.Errorf("failed to unmarshal ping record: %w", err)
		}
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, item)
	}

	pruned := len(raw) - len(kept)
	if pruned == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, PingsKey(id))
	if len(kept) > 0 {
		// raw is newest-first; RPush preserves that ordering.
		pipe.RPush(ctx, PingsKey(id), kept...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune pings: %w", err)
	}
	return pruned, nil
}
