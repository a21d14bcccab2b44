package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	// WithTx runs fn with a repository and connection bound to one transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository, tx db.DBTX) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByMeter(ctx context.Context, meterNumber string) (*Customer, error)
	GetByAccount(ctx context.Context, accountNumber, meterNumber string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository, db.DBTX) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool}, tx)
	})
}

const customerColumns = `id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
	account_number, meter_number, customer_type, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address,
		&c.AccountNumber, &c.MeterNumber, &c.CustomerType, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) one(ctx context.Context, what, where string, args ...any) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", what, httpx.ErrNotFound)
	}
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	return r.one(ctx, fmt.Sprint(id), "id = $1", id)
}

func (r *repository) GetByMeter(ctx context.Context, meterNumber string) (*Customer, error) {
	return r.one(ctx, "meter "+meterNumber, "meter_number = $1", meterNumber)
}

func (r *repository) GetByAccount(ctx context.Context, accountNumber, meterNumber string) (*Customer, error) {
	return r.one(ctx, "account "+accountNumber, "account_number = $1 AND meter_number = $2", accountNumber, meterNumber)
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	var conditions []string
	var args []any
	if req.CustomerType != "" {
		args = append(args, req.CustomerType)
		conditions = append(conditions, fmt.Sprintf("customer_type = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, db.ContainsPattern(req.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d ESCAPE '\\' OR last_name ILIKE $%d ESCAPE '\\' OR account_number ILIKE $%d ESCAPE '\\' OR meter_number ILIKE $%d ESCAPE '\\')", n, n, n, n))
	}
	query := `SELECT ` + customerColumns + ` FROM customers`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY last_name, first_name, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, address, account_number, meter_number, customer_type, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.AccountNumber, c.MeterNumber, c.CustomerType,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("account or meter number already registered: %w", httpx.ErrConflict)
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET first_name = $2, last_name = $3, email = NULLIF($4, ''), phone = NULLIF($5, ''),
			address = NULLIF($6, ''), account_number = $7, meter_number = $8, customer_type = $9, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.AccountNumber, c.MeterNumber, c.CustomerType,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("account or meter number already registered: %w", httpx.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", c.ID, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
