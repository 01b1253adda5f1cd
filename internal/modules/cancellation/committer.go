// README: Writers that persist a driver cancellation and the driver penalty as one unit.
package cancellation

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maliride/internal/modules/driver"
	"maliride/internal/modules/trip"
)

// Committer writes next over cur (guarded by cur.StatusVersion) and penalizes the
// trip's driver. Either both writes land or neither does.
type Committer interface {
	CommitDriverCancel(ctx context.Context, cur, next *trip.Trip, p driver.Penalty) (*driver.Driver, error)
}

// PostgresCommitter runs both writes in one transaction.
type PostgresCommitter struct {
	db      *pgxpool.Pool
	trips   *trip.PostgresStore
	drivers *driver.PostgresStore
}

func NewPostgresCommitter(db *pgxpool.Pool) *PostgresCommitter {
	return &PostgresCommitter{
		db:      db,
		trips:   trip.NewPostgresStore(db),
		drivers: driver.NewPostgresStore(db),
	}
}

func (c *PostgresCommitter) CommitDriverCancel(ctx context.Context, cur, next *trip.Trip, p driver.Penalty) (*driver.Driver, error) {
	var d *driver.Driver
	err := pgx.BeginFunc(ctx, c.db, func(tx pgx.Tx) error {
		ok, err := c.trips.WithTx(tx).Replace(ctx, next, cur.StatusVersion)
		if err != nil {
			return fmt.Errorf("replace trip: %w", err)
		}
		if !ok {
			return trip.ErrConflict
		}
		d, err = c.drivers.WithTx(tx).ApplyCancellationPenalty(ctx, cur.DriverID, p)
		if err != nil {
			return fmt.Errorf("penalize driver: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// StoreCommitter pairs a trip store with a driver penalizer that share no
// transaction. A failed penalty is undone by writing cur back over the trip.
type StoreCommitter struct {
	trips   trip.Store
	drivers DriverPenalizer
}

func NewStoreCommitter(trips trip.Store, drivers DriverPenalizer) *StoreCommitter {
	return &StoreCommitter{trips: trips, drivers: drivers}
}

func (c *StoreCommitter) CommitDriverCancel(ctx context.Context, cur, next *trip.Trip, p driver.Penalty) (*driver.Driver, error) {
	ok, err := c.trips.Replace(ctx, next, cur.StatusVersion)
	if err != nil {
		return nil, fmt.Errorf("replace trip: %w", err)
	}
	if !ok {
		return nil, trip.ErrConflict
	}

	d, err := c.drivers.ApplyCancellationPenalty(ctx, cur.DriverID, p)
	if err == nil {
		return d, nil
	}
	// Restores every field Replace writes; status_version moves on by one more.
	restored := cur.Clone()
	if ok, rerr := c.trips.Replace(ctx, restored, next.StatusVersion); rerr != nil || !ok {
		log.Printf("restore trip %s after failed penalty: ok=%v err=%v", cur.ID, ok, rerr)
	}
	return nil, fmt.Errorf("penalize driver: %w", err)
}
