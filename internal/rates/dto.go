package rates

import "github.com/shopspring/decimal"

type CreateRateRequest struct {
	CustomerType  string          `json:"customer_type" validate:"required,oneof=residential commercial government"`
	MinimumCharge decimal.Decimal `json:"minimum_charge"`
	RatePerCuM    decimal.Decimal `json:"rate_per_cu_m"`
	Status        string          `json:"status" validate:"omitempty,oneof=active inactive"`
	EffectiveDate string          `json:"effective_date" validate:"required,datetime=2006-01-02"`
}

type UpdateRateRequest struct {
	MinimumCharge *decimal.Decimal `json:"minimum_charge,omitempty"`
	RatePerCuM    *decimal.Decimal `json:"rate_per_cu_m,omitempty"`
	Status        *string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	EffectiveDate *string          `json:"effective_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ListRatesRequest struct {
	CustomerType string
	Status       string
}
