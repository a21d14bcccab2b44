// Package rates keeps the price schedule per customer type and computes tariffs.
package rates

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Rate struct {
	ID            int64           `json:"id"`
	CustomerType  string          `json:"customer_type"`
	MinimumCharge decimal.Decimal `json:"minimum_charge"`
	RatePerCuM    decimal.Decimal `json:"rate_per_cu_m"`
	Status        string          `json:"status"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Tariff returns the pricing formula of the rate.
func (r Rate) Tariff() Tariff {
	return Tariff{MinimumCharge: r.MinimumCharge, RatePerCuM: r.RatePerCuM}
}

// Tariff prices a consumption: the larger of the minimum charge and the
// volumetric charge, rounded to cents.
type Tariff struct {
	MinimumCharge decimal.Decimal
	RatePerCuM    decimal.Decimal
}

// Amount returns max(minimum, consumption × rate) rounded half away from zero to 2 places.
func (t Tariff) Amount(consumption decimal.Decimal) decimal.Decimal {
	volumetric := consumption.Mul(t.RatePerCuM)
	return decimal.Max(t.MinimumCharge, volumetric).Round(2)
}
