package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository, tx db.DBTX) error) error
	Holder(ctx context.Context, customerID int64) (*Holder, error)
	Bill(ctx context.Context, billID int64) (*BillState, error)
	LockBill(ctx context.Context, billID int64) (*BillState, error)
	UpdateBill(ctx context.Context, billID int64, remaining decimal.Decimal, status string) error
	Insert(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) ([]Payment, error)
	ListByAccount(ctx context.Context, accountNumber, meterNumber string) ([]Payment, error)
	ListPending(ctx context.Context) ([]Payment, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetApproved(ctx context.Context, id, approverID int64, at time.Time) error
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

func (r *repository) Holder(ctx context.Context, customerID int64) (*Holder, error) {
	var h Holder
	err := r.db.QueryRow(ctx, `SELECT id, account_number, meter_number FROM customers WHERE id = $1`, customerID).
		Scan(&h.ID, &h.AccountNumber, &h.MeterNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", customerID, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repository) bill(ctx context.Context, billID int64, suffix string) (*BillState, error) {
	var b BillState
	err := r.db.QueryRow(ctx, `
		SELECT id, customer_id, total_amount, remaining_balance, status FROM bills WHERE id = $1`+suffix, billID,
	).Scan(&b.ID, &b.CustomerID, &b.TotalAmount, &b.RemainingBalance, &b.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bill %d: %w", billID, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) Bill(ctx context.Context, billID int64) (*BillState, error) {
	return r.bill(ctx, billID, "")
}

func (r *repository) LockBill(ctx context.Context, billID int64) (*BillState, error) {
	return r.bill(ctx, billID, " FOR UPDATE")
}

func (r *repository) UpdateBill(ctx context.Context, billID int64, remaining decimal.Decimal, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bills SET remaining_balance = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		billID, remaining, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill %d: %w", billID, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (customer_id, bill_id, account_number, meter_number, amount, payment_type, status,
			remaining_balance, proof_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id`,
		p.CustomerID, p.BillID, p.AccountNumber, p.MeterNumber, p.Amount, p.PaymentType, p.Status,
		p.RemainingBalance, p.ProofPath,
	).Scan(&id)
	return id, err
}

const paymentSelect = `SELECT p.id, p.customer_id, p.bill_id, p.account_number, p.meter_number, p.amount, p.payment_type,
		p.status, p.remaining_balance, COALESCE(p.proof_path, ''), p.approved_at, p.approved_by, p.created_at,
		c.first_name || ' ' || c.last_name, COALESCE(b.bill_number, ''), b.total_amount, b.remaining_balance, b.status
	FROM payments p
	JOIN customers c ON c.id = p.customer_id
	JOIN bills b ON b.id = p.bill_id`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var total, remaining decimal.Decimal
	err := row.Scan(&p.ID, &p.CustomerID, &p.BillID, &p.AccountNumber, &p.MeterNumber, &p.Amount, &p.PaymentType,
		&p.Status, &p.RemainingBalance, &p.ProofPath, &p.ApprovedAt, &p.ApprovedBy, &p.CreatedAt,
		&p.CustomerName, &p.BillNumber, &total, &remaining, &p.BillStatus)
	if err != nil {
		return nil, err
	}
	p.BillTotal, p.BillRemaining = &total, &remaining
	return &p, nil
}

func (r *repository) one(ctx context.Context, id int64, suffix string) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, httpx.ErrNotFound)
	}
	return p, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	return r.one(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	return r.one(ctx, id, " FOR UPDATE OF p")
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	var conditions []string
	var args []any
	if req.Status != "" {
		args = append(args, req.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if req.BillID > 0 {
		args = append(args, req.BillID)
		conditions = append(conditions, fmt.Sprintf("p.bill_id = $%d", len(args)))
	}
	if req.CustomerID > 0 {
		args = append(args, req.CustomerID)
		conditions = append(conditions, fmt.Sprintf("p.customer_id = $%d", len(args)))
	}
	query := paymentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"
	return r.collect(ctx, query, args...)
}

func (r *repository) ListByAccount(ctx context.Context, accountNumber, meterNumber string) ([]Payment, error) {
	return r.collect(ctx, paymentSelect+`
		WHERE c.account_number = $1 AND c.meter_number = $2
		ORDER BY p.created_at DESC, p.id DESC`, accountNumber, meterNumber)
}

func (r *repository) ListPending(ctx context.Context) ([]Payment, error) {
	return r.collect(ctx, paymentSelect+` WHERE p.status = 'Pending' ORDER BY p.created_at, p.id`)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) SetApproved(ctx context.Context, id, approverID int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = 'Approved', approved_at = $2, approved_by = $3 WHERE id = $1`,
		id, at, approverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
