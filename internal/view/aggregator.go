// Package view builds the denormalized read model consumed by the
// presentation layer.
package view

import (
	"context"
	"sort"
	"time"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/registry"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

// DatasetGroup is one display cluster of datasets with its count,
// rendered as a count-bearing group header.
type DatasetGroup struct {
	Key      string           `json:"key"`
	Count    int              `json:"count"`
	Datasets []domain.Dataset `json:"datasets"`
}

// ServiceView is everything the status page shows for one service.
type ServiceView struct {
	Service       *domain.Service         `json:"service"`
	Harvest       *domain.HarvestResult   `json:"harvest,omitempty"`
	Messages      []domain.HarvestMessage `json:"harvest_messages,omitempty"`
	Metamap       domain.Metamap          `json:"metamap,omitempty"`
	DatasetGroups []DatasetGroup          `json:"dataset_groups"`
	Pings         []domain.PingRecord     `json:"pings"`
	LastGoodPing  *time.Time              `json:"last_good_ping,omitempty"`
}

// Aggregator composes service views from registry and store state.
// Pure read side: it never writes, so it is safe to poll frequently.
type Aggregator struct {
	registry *registry.Registry
	store    *redisstore.Store
}

// NewAggregator creates an aggregator.
func NewAggregator(reg *registry.Registry, store *redisstore.Store) *Aggregator {
	return &Aggregator{registry: reg, store: store}
}

// View assembles the full status view for a service. Returns
// ErrNotFound for unknown ids.
func (a *Aggregator) View(ctx context.Context, id string) (*ServiceView, error) {
	svc, err := a.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	harvest, err := a.store.LatestHarvest(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := a.store.HarvestMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	metamap, err := a.store.GetMetamap(ctx, id)
	if err != nil {
		return nil, err
	}
	datasets, err := a.store.Datasets(ctx, id)
	if err != nil {
		return nil, err
	}
	pings, err := a.store.Pings(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ServiceView{
		Service:       svc,
		Harvest:       harvest,
		Messages:      messages,
		Metamap:       metamap,
		DatasetGroups: GroupDatasets(datasets),
		Pings:         pings,
		LastGoodPing:  lastGoodPing(pings),
	}, nil
}

// GroupDatasets clusters datasets by their group key, ordered by key
// ascending with a stable count per group.
func GroupDatasets(datasets []domain.Dataset) []DatasetGroup {
	byKey := make(map[string][]domain.Dataset)
	for _, d := range datasets {
		byKey[d.Group] = append(byKey[d.Group], d)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]DatasetGroup, 0, len(keys))
	for _, k := range keys {
		members := byKey[k]
		sort.Slice(members, func(i, j int) bool { return members[i].UID < members[j].UID })
		groups = append(groups, DatasetGroup{
			Key:      k,
			Count:    len(members),
			Datasets: members,
		})
	}
	return groups
}

// lastGoodPing returns the timestamp of the most recent reachable
// probe, if any. Pings arrive chronologically.
func lastGoodPing(pings []domain.PingRecord) *time.Time {
	for i := len(pings) - 1; i >= 0; i-- {
		if pings[i].Reachable {
			t := pings[i].Timestamp
			return &t
		}
	}
	return nil
}
