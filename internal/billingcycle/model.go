// Package billingcycle keeps exactly one billing cycle per customer in step with
// customer creation, updates and deletion, and serves the cycle read path.
package billingcycle

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Actions reported in a Result.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionError   = "error"
)

type BillingCycle struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	BillingStartDate time.Time       `json:"billing_start_date"`
	BillingEndDate   time.Time       `json:"billing_end_date"`
	Status           string          `json:"status"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CycleView is a cycle joined with the customer columns the back office lists.
type CycleView struct {
	BillingCycle
	CustomerName  string `json:"customer_name"`
	AccountNumber string `json:"account_number"`
	MeterNumber   string `json:"meter_number"`
	CustomerType  string `json:"customer_type"`
}

// Customer is the slice of a customer record the synchronizer needs.
type Customer struct {
	ID            int64
	FirstName     string
	LastName      string
	AccountNumber string
	CustomerType  string
	CreatedAt     time.Time
}

// Result reports the outcome of a single synchronizer operation. Callers check
// Action; an error outcome carries a Message instead of a Go error.
type Result struct {
	Action     string `json:"action"`
	CustomerID int64  `json:"customer_id"`
	CycleID    int64  `json:"cycle_id,omitempty"`
	Count      int    `json:"count,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Failed reports whether the operation ended in an error.
func (r Result) Failed() bool { return r.Action == ActionError }

// Failure names one customer a bulk run could not synchronise.
type Failure struct {
	CustomerID int64  `json:"customer_id"`
	Message    string `json:"message"`
}

// Summary aggregates a bulk synchronisation run.
type Summary struct {
	Total    int       `json:"total"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Errors   int       `json:"errors"`
	Failures []Failure `json:"failures,omitempty"`
}

// Filters narrows ListWithFilters. Period is YYYY-MM matched against the start date.
type Filters struct {
	CustomerType string `json:"customer_type" validate:"omitempty,oneof=residential commercial government"`
	Period       string `json:"period" validate:"omitempty,datetime=2006-01"`
	Search       string `json:"search"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// Window returns the cycle bounds for a customer created at createdAt.
func Window(createdAt time.Time) (start, end time.Time) {
	return createdAt, createdAt.AddDate(0, 1, 0)
}
