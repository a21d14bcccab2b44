package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, req ListRatesRequest) ([]Rate, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, id int64) (*Rate, error) {
	return s.repo.Get(ctx, id)
}

// ActiveForType returns the active rate with the latest effective date on or before asOf.
func (s *Service) ActiveForType(ctx context.Context, customerType string, asOf time.Time) (*Rate, error) {
	return s.repo.ActiveForType(ctx, customerType, asOf)
}

func (s *Service) Create(ctx context.Context, req CreateRateRequest) (*Rate, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if err := checkAmounts(req.MinimumCharge, req.RatePerCuM); err != nil {
		return nil, err
	}
	effective, _ := time.Parse(dateLayout, req.EffectiveDate)
	status := req.Status
	if status == "" {
		status = StatusActive
	}
	id, err := s.repo.Create(ctx, Rate{
		CustomerType:  req.CustomerType,
		MinimumCharge: req.MinimumCharge.Round(2),
		RatePerCuM:    req.RatePerCuM.Round(4),
		Status:        status,
		EffectiveDate: effective,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRateRequest) (*Rate, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	rate, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.MinimumCharge != nil {
		rate.MinimumCharge = req.MinimumCharge.Round(2)
	}
	if req.RatePerCuM != nil {
		rate.RatePerCuM = req.RatePerCuM.Round(4)
	}
	if req.Status != nil {
		rate.Status = *req.Status
	}
	if req.EffectiveDate != nil {
		rate.EffectiveDate, _ = time.Parse(dateLayout, *req.EffectiveDate)
	}
	if err := checkAmounts(rate.MinimumCharge, rate.RatePerCuM); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, *rate); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func checkAmounts(minimum, perCuM decimal.Decimal) error {
	fields := httpx.FieldErrors{}
	if minimum.IsNegative() {
		fields["minimum_charge"] = "must not be negative"
	}
	if !perCuM.IsPositive() {
		fields["rate_per_cu_m"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return &httpx.ValidationError{Fields: fields}
	}
	return nil
}
