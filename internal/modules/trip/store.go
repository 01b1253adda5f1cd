// README: Trip store port and its PostgreSQL implementation.
package trip

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"maliride/internal/types"
)

// ListFilter narrows List; zero fields match everything.
type ListFilter struct {
	DriverID string
	Status   Status
}

type Store interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (*Trip, error)
	List(ctx context.Context, f ListFilter) ([]*Trip, error)
	// ListByDriverBetween and CountByDriverBetween use the closed interval [from, to] on CreatedAt.
	ListByDriverBetween(ctx context.Context, driverID string, from, to time.Time) ([]*Trip, error)
	CountByDriverBetween(ctx context.Context, driverID string, from, to time.Time) (int, error)
	// Replace overwrites the mutable fields of t if the stored status_version still equals
	// expectedVersion. On success t.StatusVersion is bumped to expectedVersion+1.
	Replace(ctx context.Context, t *Trip, expectedVersion int) (bool, error)
}

const tripColumns = `id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
       distance_miles, price_before_discount, discount, final_price,
       promo_code, referral_code, platform_commission, driver_earnings,
       platform_pct, driver_pct, city, pickup_cell, routing_provider,
       route_summary, client_app, status, status_version, created_at,
       scheduled_for, completed_at, cancelled_at, cancellation_reason, cancellation_fee`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db querier
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store whose statements run inside tx.
func (s *PostgresStore) WithTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (`+tripColumns+`)
        VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10,
            $11, $12, $13, $14,
            $15, $16, $17, $18, $19,
            $20, $21, $22, $23, $24,
            $25, $26, $27, $28, $29
        )`,
		string(t.ID), t.DriverID,
		t.Pickup.Lat, t.Pickup.Lng, t.Dropoff.Lat, t.Dropoff.Lng,
		t.DistanceMiles, t.PriceBeforeDiscount, t.Discount, t.FinalPrice,
		t.PromoCode, t.ReferralCode, t.PlatformCommission, t.DriverEarnings,
		t.PlatformPct, t.DriverPct, t.City, t.PickupCell, t.RoutingProvider,
		t.RouteSummary, t.ClientApp, string(t.Status), t.StatusVersion, t.CreatedAt,
		t.ScheduledFor, t.CompletedAt, t.CancelledAt, reasonPtr(t.CancellationReason), t.CancellationFee,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id))
	return scanTrip(row)
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	var driverID, status *string
	if f.DriverID != "" {
		driverID = &f.DriverID
	}
	if f.Status != "" {
		v := string(f.Status)
		status = &v
	}
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE ($1::text IS NULL OR driver_id = $1)
          AND ($2::text IS NULL OR status = $2)
        ORDER BY created_at, id`,
		driverID, status,
	)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

func (s *PostgresStore) ListByDriverBetween(ctx context.Context, driverID string, from, to time.Time) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE driver_id = $1 AND created_at >= $2 AND created_at <= $3
        ORDER BY created_at, id`,
		driverID, from, to,
	)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

func (s *PostgresStore) CountByDriverBetween(ctx context.Context, driverID string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM trips
        WHERE driver_id = $1 AND created_at >= $2 AND created_at <= $3`,
		driverID, from, to,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) Replace(ctx context.Context, t *Trip, expectedVersion int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trips
        SET status = $3,
            status_version = status_version + 1,
            platform_commission = $4,
            driver_earnings = $5,
            completed_at = $6,
            cancelled_at = $7,
            cancellation_reason = $8,
            cancellation_fee = $9
        WHERE id = $1 AND status_version = $2`,
		string(t.ID), expectedVersion,
		string(t.Status), t.PlatformCommission, t.DriverEarnings,
		t.CompletedAt, t.CancelledAt, reasonPtr(t.CancellationReason), t.CancellationFee,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	t.StatusVersion = expectedVersion + 1
	return true, nil
}

func collectTrips(rows pgx.Rows) ([]*Trip, error) {
	defer rows.Close()
	var out []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var id, status string
	var reason *string
	err := row.Scan(
		&id, &t.DriverID, &t.Pickup.Lat, &t.Pickup.Lng, &t.Dropoff.Lat, &t.Dropoff.Lng,
		&t.DistanceMiles, &t.PriceBeforeDiscount, &t.Discount, &t.FinalPrice,
		&t.PromoCode, &t.ReferralCode, &t.PlatformCommission, &t.DriverEarnings,
		&t.PlatformPct, &t.DriverPct, &t.City, &t.PickupCell, &t.RoutingProvider,
		&t.RouteSummary, &t.ClientApp, &status, &t.StatusVersion, &t.CreatedAt,
		&t.ScheduledFor, &t.CompletedAt, &t.CancelledAt, &reason, &t.CancellationFee,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ID = types.ID(id)
	t.Status = Status(status)
	if reason != nil {
		t.CancellationReason = CancelReason(*reason)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.ScheduledFor = utcPtr(t.ScheduledFor)
	t.CompletedAt = utcPtr(t.CompletedAt)
	t.CancelledAt = utcPtr(t.CancelledAt)
	return &t, nil
}

func reasonPtr(r CancelReason) *string {
	if r == "" {
		return nil
	}
	s := string(r)
	return &s
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}
