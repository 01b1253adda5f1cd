// README: Cancellation engine applies passenger and driver cancellations to stored trips.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"maliride/internal/events"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
	"maliride/internal/types"
)

var ErrNotAssigned = errors.New("trip is assigned to another driver")

type DriverPenalizer interface {
	ApplyCancellationPenalty(ctx context.Context, username string, p driver.Penalty) (*driver.Driver, error)
}

type Engine struct {
	trips     trip.Store
	committer Committer
	policy    Policy
	publisher events.Publisher
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithCommitter replaces the default StoreCommitter, e.g. with a PostgresCommitter.
func WithCommitter(c Committer) EngineOption {
	return func(e *Engine) { e.committer = c }
}

func NewEngine(trips trip.Store, drivers DriverPenalizer, policy Policy, publisher events.Publisher, opts ...EngineOption) *Engine {
	e := &Engine{
		trips:     trips,
		committer: NewStoreCommitter(trips, drivers),
		policy:    policy,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CancelCommand struct {
	TripID types.ID
	// DriverID, when set on a driver cancellation, must match the trip's driver.
	DriverID string
}

type Result struct {
	Trip   *trip.Trip     `json:"trip"`
	Driver *driver.Driver `json:"driver"`
}

func (e *Engine) CancelByPassenger(ctx context.Context, cmd CancelCommand) (*trip.Trip, error) {
	cur, err := e.load(ctx, cmd.TripID, trip.StatusCancelledByPassenger)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	next := e.policy.PassengerCancellation(cur, now)
	if err := e.replace(ctx, next, cur.StatusVersion); err != nil {
		return nil, err
	}
	events.Emit(ctx, e.publisher, events.TripCancelled, next, now)
	return next, nil
}

// CancelByDriver cancels the trip and penalizes its driver through the committer.
// On any error the stored trip and driver are left as they were.
func (e *Engine) CancelByDriver(ctx context.Context, cmd CancelCommand) (*Result, error) {
	cur, err := e.load(ctx, cmd.TripID, trip.StatusCancelledByDriver)
	if err != nil {
		return nil, err
	}
	if cmd.DriverID != "" && cmd.DriverID != cur.DriverID {
		return nil, ErrNotAssigned
	}
	now := e.now().UTC()
	next := e.policy.DriverCancellation(cur, now)
	d, err := e.committer.CommitDriverCancel(ctx, cur, next, e.policy.Penalty())
	if err != nil {
		log.Printf("driver cancel %s for trip %s: %v", cur.DriverID, cur.ID, err)
		return nil, err
	}
	events.Emit(ctx, e.publisher, events.TripCancelled, next, now)
	return &Result{Trip: next, Driver: d}, nil
}

func (e *Engine) load(ctx context.Context, id types.ID, to trip.Status) (*trip.Trip, error) {
	if id == "" {
		return nil, trip.ErrBadRequest
	}
	cur, err := e.trips.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !trip.CanTransition(cur.Status, to) {
		return nil, trip.ErrInvalidState
	}
	return cur, nil
}

func (e *Engine) replace(ctx context.Context, next *trip.Trip, version int) error {
	ok, err := e.trips.Replace(ctx, next, version)
	if err != nil {
		return fmt.Errorf("replace trip: %w", err)
	}
	if !ok {
		return trip.ErrConflict
	}
	return nil
}
