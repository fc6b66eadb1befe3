package application

import (
	"context"
	"time"

	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

// RateStore is the persistence contract for exchange-rate records. Records are
// append-only; duplicate inserts are absorbed by the store's unique constraint.
type RateStore interface {
	// GetRatesByDateCurrency returns all stored observations for the day,
	// ordered by provider registration (priority) order.
	GetRatesByDateCurrency(ctx context.Context, date time.Time, currency string) ([]domain.ExchangeRate, error)
	GetRateByDateCurrencyProvider(ctx context.Context, date time.Time, currency, provider string) (domain.ExchangeRate, error)
	// InsertNewRate persists one observation. On conflict the existing row is
	// returned instead of an error.
	InsertNewRate(ctx context.Context, date time.Time, provider, currency string, rate decimal.Decimal) (domain.ExchangeRate, error)
	// InsertExchangeRates bulk-inserts observations, skipping duplicates.
	// Returns the number of rows actually inserted.
	InsertExchangeRates(ctx context.Context, records []domain.ExchangeRate) (int, error)
	GetOrCreateProvider(ctx context.Context, name string) (domain.Provider, error)
	// GetSumOfRatesInPeriod returns per-provider (count, sum) aggregates over
	// the inclusive range, ordered by provider registration order.
	GetSumOfRatesInPeriod(ctx context.Context, start, end time.Time, currency string) ([]domain.RateSum, error)
	// GetRatesByDatesForCurrencyInPeriod returns every stored observation in
	// the inclusive range, grouped by day, in one query.
	GetRatesByDatesForCurrencyInPeriod(ctx context.Context, currency string, start, end time.Time) (map[time.Time][]decimal.Decimal, error)
}

// ProviderGateway is the uniform contract to one remote rate source.
type ProviderGateway interface {
	Name() string
	// HasRequestLimit reports whether the vendor enforces a periodic quota.
	// Quota-bearing gateways are excluded from reactive historical backfill.
	HasRequestLimit() bool
	// ResetRequestLimit clears a tripped quota flag. The first-of-month signal
	// is computed by the caller so gateways never read the clock themselves.
	ResetRequestLimit(firstOfMonth bool)
	GetSupportedCurrencies(ctx context.Context, date time.Time) (map[string]struct{}, error)
	// GetByDate returns the day's rate for one currency; ok=false means the
	// vendor has no value for that day.
	GetByDate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, bool, error)
	GetAllByDate(ctx context.Context, date time.Time, currencies []string) (map[string]decimal.Decimal, error)
	GetHistorical(ctx context.Context, origin time.Time, currencies []string) (map[time.Time]map[string]decimal.Decimal, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
