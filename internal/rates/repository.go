package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, req ListRatesRequest) ([]Rate, error)
	Get(ctx context.Context, id int64) (*Rate, error)
	ActiveForType(ctx context.Context, customerType string, asOf time.Time) (*Rate, error)
	Create(ctx context.Context, r Rate) (int64, error)
	Update(ctx context.Context, r Rate) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const rateColumns = `id, customer_type, minimum_charge, rate_per_cu_m, status, effective_date, created_at, updated_at`

func scanRate(row pgx.Row) (*Rate, error) {
	var r Rate
	if err := row.Scan(&r.ID, &r.CustomerType, &r.MinimumCharge, &r.RatePerCuM, &r.Status, &r.EffectiveDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *repository) List(ctx context.Context, req ListRatesRequest) ([]Rate, error) {
	var conditions []string
	var args []any
	if req.CustomerType != "" {
		args = append(args, req.CustomerType)
		conditions = append(conditions, fmt.Sprintf("customer_type = $%d", len(args)))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + rateColumns + ` FROM rates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY customer_type, effective_date DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rate)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Rate, error) {
	rate, err := scanRate(r.db.QueryRow(ctx, `SELECT `+rateColumns+` FROM rates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rate %d: %w", id, httpx.ErrNotFound)
	}
	return rate, err
}

func (r *repository) ActiveForType(ctx context.Context, customerType string, asOf time.Time) (*Rate, error) {
	rate, err := scanRate(r.db.QueryRow(ctx, `
		SELECT `+rateColumns+` FROM rates
		WHERE customer_type = $1 AND status = 'active' AND effective_date <= $2
		ORDER BY effective_date DESC, id DESC
		LIMIT 1`, customerType, asOf))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no active rate for %s: %w", customerType, httpx.ErrNotFound)
	}
	return rate, err
}

func (r *repository) Create(ctx context.Context, rate Rate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO rates (customer_type, minimum_charge, rate_per_cu_m, status, effective_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		rate.CustomerType, rate.MinimumCharge, rate.RatePerCuM, rate.Status, rate.EffectiveDate,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, rate Rate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rates SET minimum_charge = $2, rate_per_cu_m = $3, status = $4, effective_date = $5, updated_at = NOW()
		WHERE id = $1`,
		rate.ID, rate.MinimumCharge, rate.RatePerCuM, rate.Status, rate.EffectiveDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rate %d: %w", rate.ID, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rate %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
