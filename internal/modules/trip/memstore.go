// README: In-memory trip store; a mutex and version compare stand in for the SQL CAS.
package trip

import (
	"context"
	"sort"
	"sync"
	"time"

	"maliride/internal/types"
)

type MemoryStore struct {
	mu    sync.RWMutex
	trips map[types.ID]*Trip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[types.ID]*Trip)}
}

func (m *MemoryStore) Create(_ context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.ID]; ok {
		return ErrConflict
	}
	m.trips[t.ID] = t.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]*Trip, error) {
	return m.collect(func(t *Trip) bool {
		return (f.DriverID == "" || t.DriverID == f.DriverID) &&
			(f.Status == "" || t.Status == f.Status)
	}), nil
}

func (m *MemoryStore) ListByDriverBetween(_ context.Context, driverID string, from, to time.Time) ([]*Trip, error) {
	return m.collect(func(t *Trip) bool {
		return t.DriverID == driverID && inWindow(t.CreatedAt, from, to)
	}), nil
}

func (m *MemoryStore) CountByDriverBetween(_ context.Context, driverID string, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.trips {
		if t.DriverID == driverID && inWindow(t.CreatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Replace(_ context.Context, t *Trip, expectedVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.trips[t.ID]
	if !ok || cur.StatusVersion != expectedVersion {
		return false, nil
	}
	next := cur.Clone()
	next.Status = t.Status
	next.PlatformCommission = t.PlatformCommission
	next.DriverEarnings = t.DriverEarnings
	next.CompletedAt = copyTime(t.CompletedAt)
	next.CancelledAt = copyTime(t.CancelledAt)
	next.CancellationReason = t.CancellationReason
	if t.CancellationFee != nil {
		fee := *t.CancellationFee
		next.CancellationFee = &fee
	} else {
		next.CancellationFee = nil
	}
	next.StatusVersion = expectedVersion + 1
	m.trips[t.ID] = next
	t.StatusVersion = next.StatusVersion
	return true, nil
}

func (m *MemoryStore) collect(match func(*Trip) bool) []*Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Trip
	for _, t := range m.trips {
		if match(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func inWindow(at, from, to time.Time) bool {
	return !at.Before(from) && !at.After(to)
}
