// README: In-memory driver store keyed by username.
package driver

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	drivers map[string]*Driver
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drivers: make(map[string]*Driver)}
}

func (m *MemoryStore) Create(_ context.Context, d *Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.Username]; ok {
		return ErrDuplicate
	}
	m.drivers[d.Username] = clone(d)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, username string) (*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, clone(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, username string, u Update) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[username]
	if !ok {
		return nil, ErrNotFound
	}
	u.apply(d)
	return clone(d), nil
}

func (m *MemoryStore) ApplyCancellationPenalty(_ context.Context, username string, p Penalty) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[username]
	if !ok {
		return nil, ErrNotFound
	}
	d.Rating = PenalizedRating(d.Rating, p.RatingDelta, p.MinRating)
	d.CancelCount++
	return clone(d), nil
}
