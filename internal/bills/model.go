// Package bills issues one bill per meter reading and tracks it until it is
// paid, cancelled or overdue.
package bills

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending       = "Pending"
	StatusSent          = "Sent"
	StatusUnpaid        = "Unpaid"
	StatusPartiallyPaid = "Partially_Paid"
	StatusPaid          = "Paid"
	StatusOverdue       = "Overdue"
	StatusCancelled     = "Cancelled"
)

// Statuses lists every bill status.
func Statuses() []string {
	return []string{StatusPending, StatusSent, StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled}
}

// Open reports whether a bill in status can still receive payments.
func Open(status string) bool {
	return status != StatusPaid && status != StatusCancelled
}

type Bill struct {
	ID               int64           `json:"id"`
	BillNumber       string          `json:"bill_number"`
	CustomerID       int64           `json:"customer_id"`
	ReadingID        int64           `json:"reading_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	DueDate          time.Time       `json:"due_date"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	CustomerName  string `json:"customer_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	MeterNumber   string `json:"meter_number,omitempty"`
}

// Source is the reading a bill is generated from.
type Source struct {
	ReadingID   int64
	CustomerID  int64
	Amount      decimal.Decimal
	ReadingDate time.Time
}

// Number formats the public bill number, e.g. BILL-202505-42.
func Number(readingDate time.Time, id int64) string {
	return fmt.Sprintf("BILL-%s-%d", readingDate.Format("200601"), id)
}
