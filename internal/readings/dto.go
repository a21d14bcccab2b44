package readings

import "github.com/shopspring/decimal"

type RecordReadingRequest struct {
	MeterNumber  string          `json:"meter_number" validate:"required,max=50"`
	ReadingValue decimal.Decimal `json:"reading_value"`
	ReadingDate  string          `json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
}

type ListReadingsRequest struct {
	MeterNumber string `json:"meter_number" validate:"omitempty,max=50"`
	From        string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}
