package ledger

import (
	"context"
	"sync"

	"reliefcore/internal/distribution/models"
	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

// InMemory is the process-local ledger. Each household gets its own shard
// with its own lock, so unrelated households never contend; the
// check-then-append critical section in ExecuteAppend holds exactly one
// shard's lock.
type InMemory struct {
	mu     sync.RWMutex
	shards map[domain.LookupKey]*shard
}

type shard struct {
	mu sync.Mutex
	// events in append order; History reverses on read.
	events []models.DistributionEvent
	latest map[models.AidCategory]int
}

func NewInMemory() *InMemory {
	return &InMemory{shards: make(map[domain.LookupKey]*shard)}
}

func (s *InMemory) shardFor(key domain.LookupKey, create bool) *shard {
	s.mu.RLock()
	sh := s.shards[key]
	s.mu.RUnlock()
	if sh != nil || !create {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sh = s.shards[key]; sh == nil {
		sh = &shard{latest: make(map[models.AidCategory]int)}
		s.shards[key] = sh
	}
	return sh
}

// Append validates and records an event. Business-rule gating happens before
// this call; only malformed input is rejected here.
func (s *InMemory) Append(_ context.Context, event models.DistributionEvent) (domain.EventID, error) {
	if err := event.Validate(); err != nil {
		return domain.EventID{}, err
	}

	sh := s.shardFor(event.LookupKey, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.append(event)
	return event.ID, nil
}

// append assumes the shard lock is held.
func (sh *shard) append(event models.DistributionEvent) {
	sh.events = append(sh.events, event)
	sh.latest[event.Category] = len(sh.events) - 1
}

// ExecuteAppend runs check against the latest event for {key, category} and,
// when it passes, appends the built event — all under the shard lock. Two
// concurrent distribution calls for the same household cannot both observe
// "eligible" before either commits.
func (s *InMemory) ExecuteAppend(
	_ context.Context,
	key domain.LookupKey,
	category models.AidCategory,
	check func(last *models.DistributionEvent) error,
	build func() models.DistributionEvent,
) (models.DistributionEvent, error) {
	sh := s.shardFor(key, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var last *models.DistributionEvent
	if idx, ok := sh.latest[category]; ok {
		ev := sh.events[idx]
		last = &ev
	}
	if err := check(last); err != nil {
		return models.DistributionEvent{}, err
	}

	event := build()
	if err := event.Validate(); err != nil {
		return models.DistributionEvent{}, err
	}
	sh.append(event)
	return event, nil
}

// LatestByCategory returns the most recent event for {key, category}.
func (s *InMemory) LatestByCategory(_ context.Context, key domain.LookupKey, category models.AidCategory) (models.DistributionEvent, error) {
	sh := s.shardFor(key, false)
	if sh == nil {
		return models.DistributionEvent{}, sentinel.ErrNotFound
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	idx, ok := sh.latest[category]
	if !ok {
		return models.DistributionEvent{}, sentinel.ErrNotFound
	}
	return sh.events[idx], nil
}

// LatestPerCategory returns the most recent event for each requested category
// that has one.
func (s *InMemory) LatestPerCategory(_ context.Context, key domain.LookupKey, categories []models.AidCategory) (map[models.AidCategory]models.DistributionEvent, error) {
	out := make(map[models.AidCategory]models.DistributionEvent)
	sh := s.shardFor(key, false)
	if sh == nil {
		return out, nil
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, category := range categories {
		if idx, ok := sh.latest[category]; ok {
			out[category] = sh.events[idx]
		}
	}
	return out, nil
}

// History returns events most-recent-first, optionally filtered by category.
func (s *InMemory) History(_ context.Context, key domain.LookupKey, category *models.AidCategory) ([]models.DistributionEvent, error) {
	sh := s.shardFor(key, false)
	if sh == nil {
		return nil, nil
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	out := make([]models.DistributionEvent, 0, len(sh.events))
	for i := len(sh.events) - 1; i >= 0; i-- {
		if category != nil && sh.events[i].Category != *category {
			continue
		}
		out = append(out, sh.events[i])
	}
	return out, nil
}
