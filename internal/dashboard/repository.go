package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/db"
)

// Source runs the aggregate queries behind the summary.
type Source interface {
	Count(ctx context.Context, m Metric) (int64, error)
	Outstanding(ctx context.Context) (decimal.Decimal, error)
}

var countQueries = map[Metric]string{
	MetricCustomers:       `SELECT COUNT(*) FROM customers`,
	MetricActiveCycles:    `SELECT COUNT(*) FROM billing_cycles WHERE status = 'active'`,
	MetricUnpaidBills:     `SELECT COUNT(*) FROM bills WHERE status IN ('Pending', 'Sent', 'Unpaid', 'Partially_Paid')`,
	MetricOverdueBills:    `SELECT COUNT(*) FROM bills WHERE status = 'Overdue'`,
	MetricPendingPayments: `SELECT COUNT(*) FROM payments WHERE status = 'Pending'`,
	MetricOpenTickets:     `SELECT COUNT(*) FROM tickets WHERE status IN ('open', 'pending')`,
}

type pgSource struct {
	db db.DBTX
}

func NewSource(conn db.DBTX) Source {
	return &pgSource{db: conn}
}

func (s *pgSource) Count(ctx context.Context, m Metric) (int64, error) {
	query, ok := countQueries[m]
	if !ok {
		return 0, fmt.Errorf("dashboard: unknown metric %q", m)
	}
	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("dashboard: count %s: %w", m, err)
	}
	return n, nil
}

func (s *pgSource) Outstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining_balance), 0) FROM bills
		WHERE status NOT IN ('Paid', 'Cancelled')`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dashboard: outstanding: %w", err)
	}
	return total, nil
}
