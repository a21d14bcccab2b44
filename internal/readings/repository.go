package readings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	// LockCustomer serialises reading entry for one customer until the transaction ends.
	LockCustomer(ctx context.Context, customerID int64) error
	Latest(ctx context.Context, meterNumber string) (*Reading, error)
	Create(ctx context.Context, r Reading) (int64, error)
	Get(ctx context.Context, id int64) (*Reading, error)
	List(ctx context.Context, meterNumber string, from, to *time.Time) ([]Reading, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) LockCustomer(ctx context.Context, customerID int64) error {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("customer %d: %w", customerID, httpx.ErrNotFound)
	}
	return err
}

const readingSelect = `SELECT mr.id, mr.customer_id, mr.meter_number, mr.reading_value, mr.consumption, mr.amount,
		COALESCE(mr.staff_id, 0), mr.reading_date, mr.created_at, c.first_name || ' ' || c.last_name, c.account_number
	FROM meter_readings mr
	JOIN customers c ON c.id = mr.customer_id`

func scanReading(row pgx.Row) (*Reading, error) {
	var m Reading
	err := row.Scan(&m.ID, &m.CustomerID, &m.MeterNumber, &m.ReadingValue, &m.Consumption, &m.Amount,
		&m.StaffID, &m.ReadingDate, &m.CreatedAt, &m.CustomerName, &m.AccountNumber)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) Latest(ctx context.Context, meterNumber string) (*Reading, error) {
	m, err := scanReading(r.db.QueryRow(ctx, readingSelect+`
		WHERE mr.meter_number = $1
		ORDER BY mr.reading_date DESC, mr.id DESC
		LIMIT 1`, meterNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading for meter %s: %w", meterNumber, httpx.ErrNotFound)
	}
	return m, err
}

func (r *repository) Create(ctx context.Context, m Reading) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO meter_readings (customer_id, meter_number, reading_value, consumption, amount, staff_id, reading_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id`,
		m.CustomerID, m.MeterNumber, m.ReadingValue, m.Consumption, m.Amount, m.StaffID, m.ReadingDate,
	).Scan(&id)
	return id, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Reading, error) {
	m, err := scanReading(r.db.QueryRow(ctx, readingSelect+` WHERE mr.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading %d: %w", id, httpx.ErrNotFound)
	}
	return m, err
}

func (r *repository) List(ctx context.Context, meterNumber string, from, to *time.Time) ([]Reading, error) {
	var conditions []string
	var args []any
	if meterNumber != "" {
		args = append(args, meterNumber)
		conditions = append(conditions, fmt.Sprintf("mr.meter_number = $%d", len(args)))
	}
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("mr.reading_date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("mr.reading_date < $%d", len(args)))
	}
	query := readingSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY mr.reading_date DESC, mr.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reading
	for rows.Next() {
		m, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM meter_readings WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("reading %d is already billed: %w", id, httpx.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reading %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
