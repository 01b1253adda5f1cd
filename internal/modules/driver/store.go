// README: Driver store port and its PostgreSQL implementation.
package driver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, d *Driver) error
	Get(ctx context.Context, username string) (*Driver, error)
	List(ctx context.Context) ([]*Driver, error)
	Update(ctx context.Context, username string, u Update) (*Driver, error)
	ApplyCancellationPenalty(ctx context.Context, username string, p Penalty) (*Driver, error)
}

const driverColumns = `username, first_name, last_name, age, city, transport_type,
       status, rating, cancel_count, created_at`

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

func (s *PostgresStore) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO drivers (`+driverColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.Username, d.FirstName, d.LastName, d.Age, d.City, d.TransportType,
		string(d.Status), d.Rating, d.CancelCount, d.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, username string) (*Driver, error) {
	row := s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE username = $1`, username)
	return scanDriver(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Driver, error) {
	rows, err := s.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, username string, u Update) (*Driver, error) {
	var status *string
	if u.Status != nil {
		v := string(*u.Status)
		status = &v
	}
	row := s.db.QueryRow(ctx, `
        UPDATE drivers
        SET first_name = COALESCE($2, first_name),
            last_name = COALESCE($3, last_name),
            age = COALESCE($4, age),
            city = COALESCE($5, city),
            transport_type = COALESCE($6, transport_type),
            status = COALESCE($7, status)
        WHERE username = $1
        RETURNING `+driverColumns,
		username, u.FirstName, u.LastName, u.Age, u.City, u.TransportType, status,
	)
	return scanDriver(row)
}

func (s *PostgresStore) ApplyCancellationPenalty(ctx context.Context, username string, p Penalty) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE drivers
        SET rating = GREATEST($3::float8, ROUND((rating - $2::float8)::numeric, 2)::float8),
            cancel_count = cancel_count + 1
        WHERE username = $1
        RETURNING `+driverColumns,
		username, p.RatingDelta, p.MinRating,
	)
	return scanDriver(row)
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var status string
	err := row.Scan(
		&d.Username, &d.FirstName, &d.LastName, &d.Age, &d.City, &d.TransportType,
		&status, &d.Rating, &d.CancelCount, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Status = Status(status)
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
