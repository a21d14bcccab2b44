package rates

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTariffAmount(t *testing.T) {
	residential := Tariff{MinimumCharge: d("100"), RatePerCuM: d("20")}
	cases := []struct {
		name        string
		consumption string
		want        string
	}{
		{"volumetric above minimum", "15", "300.00"},
		{"minimum applies", "3", "100.00"},
		{"exactly at minimum", "5", "100.00"},
		{"zero consumption", "0", "100.00"},
		{"fractional rounding", "7.333", "146.66"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := residential.Amount(d(tc.consumption))
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

type memRepo struct {
	rates  map[int64]Rate
	nextID int64
}

func (m *memRepo) List(ctx context.Context, req ListRatesRequest) ([]Rate, error) {
	var out []Rate
	for _, r := range m.rates {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (*Rate, error) {
	r, ok := m.rates[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) ActiveForType(ctx context.Context, ctype string, asOf time.Time) (*Rate, error) {
	var best *Rate
	for _, r := range m.rates {
		r := r
		if r.CustomerType != ctype || r.Status != StatusActive || r.EffectiveDate.After(asOf) {
			continue
		}
		if best == nil || r.EffectiveDate.After(best.EffectiveDate) {
			best = &r
		}
	}
	if best == nil {
		return nil, httpx.ErrNotFound
	}
	return best, nil
}

func (m *memRepo) Create(ctx context.Context, r Rate) (int64, error) {
	m.nextID++
	r.ID = m.nextID
	m.rates[r.ID] = r
	return r.ID, nil
}

func (m *memRepo) Update(ctx context.Context, r Rate) error {
	m.rates[r.ID] = r
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rates, id)
	return nil
}

func TestActiveForTypePrefersLatestEffectiveDate(t *testing.T) {
	svc := NewService(&memRepo{rates: map[int64]Rate{}})
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateRateRequest{CustomerType: "residential", MinimumCharge: d("80"), RatePerCuM: d("15"), EffectiveDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRateRequest{CustomerType: "residential", MinimumCharge: d("100"), RatePerCuM: d("20"), EffectiveDate: "2025-01-01"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRateRequest{CustomerType: "residential", MinimumCharge: d("150"), RatePerCuM: d("25"), EffectiveDate: "2026-01-01"})
	require.NoError(t, err)

	rate, err := svc.ActiveForType(ctx, "residential", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "300.00", rate.Tariff().Amount(d("15")).StringFixed(2))
}

func TestCreateRejectsNonPositiveRate(t *testing.T) {
	svc := NewService(&memRepo{rates: map[int64]Rate{}})
	_, err := svc.Create(context.Background(), CreateRateRequest{CustomerType: "commercial", MinimumCharge: d("-1"), RatePerCuM: d("0"), EffectiveDate: "2025-01-01"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "minimum_charge")
	assert.Contains(t, verr.Fields, "rate_per_cu_m")
}

func TestCreateRejectsBadDate(t *testing.T) {
	svc := NewService(&memRepo{rates: map[int64]Rate{}})
	_, err := svc.Create(context.Background(), CreateRateRequest{CustomerType: "commercial", MinimumCharge: d("1"), RatePerCuM: d("2"), EffectiveDate: "01/02/2025"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
