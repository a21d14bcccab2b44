package billingcycle

import "github.com/shopspring/decimal"

type CreateCycleRequest struct {
	CustomerID       int64            `json:"customer_id" validate:"required,gt=0"`
	BillingStartDate string           `json:"billing_start_date" validate:"required,datetime=2006-01-02"`
	BillingEndDate   string           `json:"billing_end_date" validate:"required,datetime=2006-01-02"`
	Status           string           `json:"status" validate:"omitempty,oneof=active inactive"`
	AmountDue        *decimal.Decimal `json:"amount_due,omitempty"`
}

type UpdateCycleRequest struct {
	BillingStartDate *string          `json:"billing_start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BillingEndDate   *string          `json:"billing_end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status           *string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	AmountDue        *decimal.Decimal `json:"amount_due,omitempty"`
}
