// Package dashboard computes the home page counters and caches them in Redis.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	Customers       int64           `json:"customers"`
	ActiveCycles    int64           `json:"active_cycles"`
	UnpaidBills     int64           `json:"unpaid_bills"`
	OverdueBills    int64           `json:"overdue_bills"`
	PendingPayments int64           `json:"pending_payments"`
	OpenTickets     int64           `json:"open_tickets"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Metric names one counter of the summary.
type Metric string

const (
	MetricCustomers       Metric = "customers"
	MetricActiveCycles    Metric = "active_cycles"
	MetricUnpaidBills     Metric = "unpaid_bills"
	MetricOverdueBills    Metric = "overdue_bills"
	MetricPendingPayments Metric = "pending_payments"
	MetricOpenTickets     Metric = "open_tickets"
)
