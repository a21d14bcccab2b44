package bills

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
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository, tx db.DBTX) error) error
	Source(ctx context.Context, readingID int64) (*Source, error)
	Insert(ctx context.Context, b Bill) (int64, error)
	SetNumber(ctx context.Context, id int64, number string) error
	Get(ctx context.Context, id int64) (*Bill, error)
	GetForUpdate(ctx context.Context, id int64) (*Bill, error)
	List(ctx context.Context, req ListBillsRequest) ([]Bill, error)
	ListByAccount(ctx context.Context, accountNumber, meterNumber string) ([]Bill, error)
	SetStatus(ctx context.Context, id int64, status string) error
	HasApprovedPayment(ctx context.Context, id int64) (bool, error)
	// RejectOpenPayments rejects the bill's payments that are still awaiting validation.
	RejectOpenPayments(ctx context.Context, id int64) (int, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
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

func (r *repository) Source(ctx context.Context, readingID int64) (*Source, error) {
	var s Source
	err := r.db.QueryRow(ctx, `
		SELECT id, customer_id, amount, reading_date FROM meter_readings WHERE id = $1`, readingID,
	).Scan(&s.ReadingID, &s.CustomerID, &s.Amount, &s.ReadingDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading %d: %w", readingID, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Insert(ctx context.Context, b Bill) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO bills (customer_id, reading_id, total_amount, remaining_balance, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		b.CustomerID, b.ReadingID, b.TotalAmount, b.RemainingBalance, b.DueDate, b.Status,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("reading %d is already billed: %w", b.ReadingID, httpx.ErrConflict)
	}
	return id, err
}

func (r *repository) SetNumber(ctx context.Context, id int64, number string) error {
	_, err := r.db.Exec(ctx, `UPDATE bills SET bill_number = $2 WHERE id = $1`, id, number)
	return err
}

const billSelect = `SELECT b.id, COALESCE(b.bill_number, ''), b.customer_id, b.reading_id, b.total_amount, b.remaining_balance,
		b.due_date, b.status, b.created_at, b.updated_at,
		c.first_name || ' ' || c.last_name, c.account_number, c.meter_number
	FROM bills b
	JOIN customers c ON c.id = b.customer_id`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.CustomerID, &b.ReadingID, &b.TotalAmount, &b.RemainingBalance,
		&b.DueDate, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&b.CustomerName, &b.AccountNumber, &b.MeterNumber)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) one(ctx context.Context, id int64, suffix string) (*Bill, error) {
	b, err := scanBill(r.db.QueryRow(ctx, billSelect+` WHERE b.id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bill %d: %w", id, httpx.ErrNotFound)
	}
	return b, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Bill, error) {
	return r.one(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Bill, error) {
	return r.one(ctx, id, " FOR UPDATE OF b")
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Bill, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListBillsRequest) ([]Bill, error) {
	var conditions []string
	var args []any
	if req.Status != "" {
		args = append(args, req.Status)
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if req.CustomerID > 0 {
		args = append(args, req.CustomerID)
		conditions = append(conditions, fmt.Sprintf("b.customer_id = $%d", len(args)))
	}
	if req.Search != "" {
		args = append(args, db.ContainsPattern(req.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(b.bill_number ILIKE $%d ESCAPE '\\' OR c.account_number ILIKE $%d ESCAPE '\\' OR (c.first_name || ' ' || c.last_name) ILIKE $%d ESCAPE '\\')", n, n, n))
	}
	query := billSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.created_at DESC, b.id DESC"
	return r.collect(ctx, query, args...)
}

func (r *repository) ListByAccount(ctx context.Context, accountNumber, meterNumber string) ([]Bill, error) {
	return r.collect(ctx, billSelect+`
		WHERE c.account_number = $1 AND c.meter_number = $2 AND b.status <> 'Cancelled'
		ORDER BY b.due_date DESC, b.id DESC`, accountNumber, meterNumber)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE bills SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) HasApprovedPayment(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE bill_id = $1 AND status = 'Approved')`, id,
	).Scan(&exists)
	return exists, err
}

func (r *repository) RejectOpenPayments(ctx context.Context, id int64) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = 'Rejected'
		WHERE bill_id = $1 AND status IN ('Pending', 'Verification_Failed')`, id)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bills SET status = 'Overdue', updated_at = NOW()
		WHERE status IN ('Pending', 'Sent', 'Unpaid', 'Partially_Paid') AND due_date < $1`, asOf)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
