// Package payments accepts proof-of-payment submissions and settles them against
// bills once a bill handler approves them.
package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeFull    = "Full"
	TypePartial = "Partial"
)

const (
	StatusPending            = "Pending"
	StatusApproved           = "Approved"
	StatusRejected           = "Rejected"
	StatusVerificationFailed = "Verification_Failed"
)

type Payment struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	BillID           int64           `json:"bill_id"`
	AccountNumber    string          `json:"account_number"`
	MeterNumber      string          `json:"meter_number"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentType      string          `json:"payment_type"`
	Status           string          `json:"status"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	ProofPath        string          `json:"proof_path,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy       *int64          `json:"approved_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`

	CustomerName  string           `json:"customer_name,omitempty"`
	BillNumber    string           `json:"bill_number,omitempty"`
	BillTotal     *decimal.Decimal `json:"bill_total,omitempty"`
	BillRemaining *decimal.Decimal `json:"bill_remaining,omitempty"`
	BillStatus    string           `json:"bill_status,omitempty"`
}

// Holder is the customer a payment claims to come from.
type Holder struct {
	ID            int64
	AccountNumber string
	MeterNumber   string
}

// BillState is the part of a bill settlement reads and writes.
type BillState struct {
	ID               int64
	CustomerID       int64
	TotalAmount      decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           string
}

// Verify reports whether the account and meter numbers on the payment both
// match the customer record.
func Verify(p Payment, h Holder) bool {
	return p.AccountNumber == h.AccountNumber && p.MeterNumber == h.MeterNumber
}
