package billingcycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

// Store is the persistence port of the synchronizer.
type Store interface {
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	FindByCustomer(ctx context.Context, customerID int64) (*BillingCycle, error)
	Insert(ctx context.Context, c BillingCycle) (int64, error)
	UpdateWindow(ctx context.Context, id int64, start, end time.Time, status string) error
	ActivateByCustomer(ctx context.Context, customerID int64) (int, error)
	DeleteByCustomer(ctx context.Context, customerID int64) (int, error)
	AddAmountDue(ctx context.Context, customerID int64, at time.Time, amount decimal.Decimal) (int, error)
	List(ctx context.Context, f Filters) ([]CycleView, error)
	Get(ctx context.Context, id int64) (*CycleView, error)
	Update(ctx context.Context, c BillingCycle) error
	Delete(ctx context.Context, id int64) error
}

type pgStore struct {
	db db.DBTX
}

// NewPGStore returns a Store over a pool or a transaction.
func NewPGStore(conn db.DBTX) Store {
	return &pgStore{db: conn}
}

func (s *pgStore) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var c Customer
	err := s.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, account_number, customer_type, created_at
		FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.FirstName, &c.LastName, &c.AccountNumber, &c.CustomerType, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *pgStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, first_name, last_name, account_number, customer_type, created_at
		FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.AccountNumber, &c.CustomerType, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const cycleColumns = `bc.id, bc.customer_id, bc.billing_start_date, bc.billing_end_date, bc.status, bc.amount_due, bc.created_at, bc.updated_at`

func scanCycle(row pgx.Row, extra ...any) (*BillingCycle, error) {
	var c BillingCycle
	dest := append([]any{&c.ID, &c.CustomerID, &c.BillingStartDate, &c.BillingEndDate, &c.Status, &c.AmountDue, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *pgStore) FindByCustomer(ctx context.Context, customerID int64) (*BillingCycle, error) {
	c, err := scanCycle(s.db.QueryRow(ctx, `
		SELECT `+cycleColumns+` FROM billing_cycles bc
		WHERE bc.customer_id = $1 ORDER BY bc.id LIMIT 1`, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("billing cycle for customer %d: %w", customerID, httpx.ErrNotFound)
	}
	return c, err
}

func (s *pgStore) Insert(ctx context.Context, c BillingCycle) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO billing_cycles (customer_id, billing_start_date, billing_end_date, status, amount_due, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		c.CustomerID, c.BillingStartDate, c.BillingEndDate, c.Status, c.AmountDue,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("customer %d already has a billing cycle: %w", c.CustomerID, httpx.ErrConflict)
	}
	return id, err
}

func (s *pgStore) UpdateWindow(ctx context.Context, id int64, start, end time.Time, status string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE billing_cycles SET billing_start_date = $2, billing_end_date = $3, status = $4, updated_at = NOW()
		WHERE id = $1`, id, start, end, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing cycle %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (s *pgStore) ActivateByCustomer(ctx context.Context, customerID int64) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE billing_cycles SET status = 'active', updated_at = NOW() WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *pgStore) DeleteByCustomer(ctx context.Context, customerID int64) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM billing_cycles WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *pgStore) AddAmountDue(ctx context.Context, customerID int64, at time.Time, amount decimal.Decimal) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE billing_cycles SET amount_due = amount_due + $3, updated_at = NOW()
		WHERE customer_id = $1 AND billing_start_date <= $2 AND billing_end_date > $2`,
		customerID, at, amount)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const viewSelect = `SELECT ` + cycleColumns + `,
		c.first_name || ' ' || c.last_name, c.account_number, c.meter_number, c.customer_type
	FROM billing_cycles bc
	JOIN customers c ON c.id = bc.customer_id`

func scanView(row pgx.Row) (*CycleView, error) {
	var v CycleView
	c, err := scanCycle(row, &v.CustomerName, &v.AccountNumber, &v.MeterNumber, &v.CustomerType)
	if err != nil {
		return nil, err
	}
	v.BillingCycle = *c
	return &v, nil
}

func (s *pgStore) List(ctx context.Context, f Filters) ([]CycleView, error) {
	var conditions []string
	var args []any
	if f.CustomerType != "" {
		args = append(args, f.CustomerType)
		conditions = append(conditions, fmt.Sprintf("c.customer_type = $%d", len(args)))
	}
	if f.Period != "" {
		args = append(args, f.Period)
		conditions = append(conditions, fmt.Sprintf("to_char(bc.billing_start_date, 'YYYY-MM') = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, db.ContainsPattern(f.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(c.first_name || ' ' || c.last_name ILIKE $%d ESCAPE '\\' OR c.account_number ILIKE $%d ESCAPE '\\')", n, n))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("bc.status = $%d", len(args)))
	}
	query := viewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY bc.created_at DESC, bc.id DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CycleView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id int64) (*CycleView, error) {
	v, err := scanView(s.db.QueryRow(ctx, viewSelect+` WHERE bc.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("billing cycle %d: %w", id, httpx.ErrNotFound)
	}
	return v, err
}

func (s *pgStore) Update(ctx context.Context, c BillingCycle) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE billing_cycles SET billing_start_date = $2, billing_end_date = $3, status = $4, amount_due = $5, updated_at = NOW()
		WHERE id = $1`, c.ID, c.BillingStartDate, c.BillingEndDate, c.Status, c.AmountDue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing cycle %d: %w", c.ID, httpx.ErrNotFound)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM billing_cycles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing cycle %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
