// README: Trip service for lookups and completion.
package trip

import (
	"context"
	"time"

	"maliride/internal/events"
	"maliride/internal/types"
)

type Service struct {
	store     Store
	publisher events.Publisher
	now       func() time.Time
}

func NewService(store Store, publisher events.Publisher) *Service {
	return &Service{store: store, publisher: publisher, now: time.Now}
}

type CompleteCommand struct {
	TripID types.ID
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	return s.store.List(ctx, f)
}

// Complete closes a requested or scheduled trip. The ledger split is kept as booked.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Trip, error) {
	t, err := s.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(t.Status, StatusCompleted) {
		return nil, ErrInvalidState
	}
	now := s.now().UTC()
	version := t.StatusVersion
	t.Status = StatusCompleted
	t.CompletedAt = &now

	ok, err := s.store.Replace(ctx, t, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	events.Emit(ctx, s.publisher, events.TripCompleted, t, now)
	return t, nil
}
