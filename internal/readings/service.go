package readings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/customers"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/rates"
)

const dateLayout = "2006-01-02"

// CustomerFinder resolves the customer a meter belongs to.
type CustomerFinder interface {
	GetByMeter(ctx context.Context, meterNumber string) (*customers.Customer, error)
}

// RateFinder returns the rate in force for a customer type on a date.
type RateFinder interface {
	ActiveForType(ctx context.Context, customerType string, asOf time.Time) (*rates.Rate, error)
}

type Service struct {
	repo      Repository
	customers CustomerFinder
	rates     RateFinder
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, customers CustomerFinder, rates RateFinder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, customers: customers, rates: rates, logger: logger, now: time.Now}
}

// Record stores a cumulative meter index. Consumption is the difference from the
// meter's latest reading, or the full index for a first reading. Readings are
// entered in date order, so a date before the latest reading is rejected.
func (s *Service) Record(ctx context.Context, req RecordReadingRequest, staffID int64) (*Reading, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if req.ReadingValue.IsNegative() {
		return nil, httpx.Invalid("reading_value", "must not be negative")
	}
	meter := strings.TrimSpace(req.MeterNumber)
	readingDate := s.now().UTC().Truncate(24 * time.Hour)
	if req.ReadingDate != "" {
		readingDate, _ = time.Parse(dateLayout, req.ReadingDate)
	}

	customer, err := s.customers.GetByMeter(ctx, meter)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.Invalid("meter_number", "no customer has this meter")
		}
		return nil, err
	}
	rate, err := s.rates.ActiveForType(ctx, customer.CustomerType, readingDate)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.Invalid("meter_number", "no active rate for customer type "+customer.CustomerType)
		}
		return nil, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.LockCustomer(ctx, customer.ID); err != nil {
			return err
		}
		previous := decimal.Zero
		latest, err := repo.Latest(ctx, meter)
		switch {
		case err == nil:
			if readingDate.Before(latest.ReadingDate) {
				return httpx.Invalid("reading_date", "must not be before the latest reading on "+latest.ReadingDate.Format(dateLayout))
			}
			previous = latest.ReadingValue
		case !errors.Is(err, httpx.ErrNotFound):
			return err
		}
		consumption := req.ReadingValue.Sub(previous)
		if consumption.IsNegative() {
			return httpx.Invalid("reading_value", fmt.Sprintf("must not be below the previous reading %s", previous.String()))
		}
		id, err = repo.Create(ctx, Reading{
			CustomerID:   customer.ID,
			MeterNumber:  meter,
			ReadingValue: req.ReadingValue,
			Consumption:  consumption,
			Amount:       rate.Tariff().Amount(consumption),
			StaffID:      staffID,
			ReadingDate:  readingDate,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("meter reading recorded", slog.Int64("reading_id", id), slog.String("meter_number", meter), slog.Int64("staff_id", staffID))
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListReadingsRequest) ([]Reading, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	var from, to *time.Time
	if req.From != "" {
		t, _ := time.Parse(dateLayout, req.From)
		from = &t
	}
	if req.To != "" {
		t, _ := time.Parse(dateLayout, req.To)
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	return s.repo.List(ctx, strings.TrimSpace(req.MeterNumber), from, to)
}

func (s *Service) Get(ctx context.Context, id int64) (*Reading, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("meter reading deleted", slog.Int64("reading_id", id))
	return nil
}
