package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore appends bookings to the bookings table created by the
// embedded migrations.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("bookings: querier required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.postgres.append")
	defer span.End()

	r := entry.Record
	query := `
		INSERT INTO bookings (id, created_at, name, email, phone, service, date, time, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		uuid.New(),
		entry.Timestamp.UTC(),
		r.Name, r.Email, r.Phone, r.Service, r.Date, r.Time, r.Notes,
		entry.Status,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: insert booking: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *PostgresStore) ListBookedTimes(ctx context.Context, date string) ([]string, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.postgres.list_booked")
	defer span.End()

	rows, err := s.db.Query(ctx, `SELECT time FROM bookings WHERE date = $1 AND status = $2 ORDER BY time`, date, StatusConfirmed)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: list booked times: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("bookings: scan booked time: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list booked times: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
