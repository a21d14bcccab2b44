package payments

import "github.com/shopspring/decimal"

type StorePaymentRequest struct {
	BillID        int64           `json:"bill_id" form:"bill_id" validate:"required,gt=0"`
	AccountNumber string          `json:"account_number" form:"account_number" validate:"required,max=50"`
	MeterNumber   string          `json:"meter_number" form:"meter_number" validate:"required,max=50"`
	Amount        decimal.Decimal `json:"amount" form:"amount"`
	PaymentType   string          `json:"payment_type" form:"payment_type" validate:"required,oneof=Full Partial"`
}

type ListPaymentsRequest struct {
	Status     string `json:"status" validate:"omitempty,oneof=Pending Approved Rejected Verification_Failed"`
	BillID     int64  `json:"bill_id" validate:"omitempty,gt=0"`
	CustomerID int64  `json:"customer_id" validate:"omitempty,gt=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Approved Rejected"`
}

type AccountLookup struct {
	AccountNumber string `json:"account_number" validate:"required,max=50"`
	MeterNumber   string `json:"meter_number" validate:"required,max=50"`
}
