// Package readings records meter readings and prices the consumption since the
// previous reading of the same meter.
package readings

import (
	"time"

	"github.com/shopspring/decimal"
)

type Reading struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	MeterNumber  string          `json:"meter_number"`
	ReadingValue decimal.Decimal `json:"reading_value"`
	Consumption  decimal.Decimal `json:"consumption"`
	Amount       decimal.Decimal `json:"amount"`
	StaffID      int64           `json:"staff_id"`
	ReadingDate  time.Time       `json:"reading_date"`
	CreatedAt    time.Time       `json:"created_at"`

	CustomerName  string `json:"customer_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
}
