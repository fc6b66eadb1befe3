package provider

import (
	"context"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

// Fake is an in-memory gateway for local development and wiring tests. It
// reports every requested currency as supported and answers every date with
// the same configured rates.
type Fake struct {
	name  string
	rates map[string]decimal.Decimal
}

var _ application.ProviderGateway = (*Fake)(nil)

func NewFake(name string, rates map[string]decimal.Decimal) *Fake {
	if rates == nil {
		rates = map[string]decimal.Decimal{}
	}
	return &Fake{name: name, rates: rates}
}

func (f *Fake) Name() string           { return f.name }
func (f *Fake) HasRequestLimit() bool  { return false }
func (f *Fake) ResetRequestLimit(bool) {}

func (f *Fake) GetSupportedCurrencies(context.Context, time.Time) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(f.rates))
	for c := range f.rates {
		set[c] = struct{}{}
	}
	return set, nil
}

func (f *Fake) GetByDate(_ context.Context, _ time.Time, currency string) (decimal.Decimal, bool, error) {
	rate, ok := f.rates[currency]
	return rate, ok, nil
}

func (f *Fake) GetAllByDate(_ context.Context, _ time.Time, currencies []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, c := range currencies {
		if rate, ok := f.rates[c]; ok {
			out[c] = rate
		}
	}
	return out, nil
}

func (f *Fake) GetHistorical(ctx context.Context, origin time.Time, currencies []string) (map[time.Time]map[string]decimal.Decimal, error) {
	day := domain.Day(origin)
	rates, err := f.GetAllByDate(ctx, day, currencies)
	if err != nil {
		return nil, err
	}
	return map[time.Time]map[string]decimal.Decimal{day: rates}, nil
}
