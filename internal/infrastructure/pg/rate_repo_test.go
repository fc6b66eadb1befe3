package pg_test

import (
	"context"
	"testing"
	"time"

	"fxrates-aggregator/internal/domain"
	"fxrates-aggregator/internal/infrastructure/pg"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRateRepo_InsertAndRead(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	ctx := context.Background()
	repo := pg.NewRateRepo(db)
	d := day(2016, 2, 17)

	rec, err := repo.InsertNewRate(ctx, d, "grandtrunk", "EUR", decimal.RequireFromString("0.883282"))
	require.NoError(t, err)
	require.Equal(t, "grandtrunk", rec.Provider)
	require.Equal(t, "0.883282", rec.Rate.String())

	// conflicting insert returns the existing row untouched
	again, err := repo.InsertNewRate(ctx, d, "grandtrunk", "EUR", decimal.RequireFromString("0.9"))
	require.NoError(t, err)
	require.Equal(t, "0.883282", again.Rate.String())

	got, err := repo.GetRatesByDateCurrency(ctx, d, "EUR")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = repo.GetRateByDateCurrencyProvider(ctx, d, "EUR", "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRateRepo_BulkInsertAbsorbsDuplicates(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	ctx := context.Background()
	repo := pg.NewRateRepo(db)
	d := day(2016, 2, 17)

	records := []domain.ExchangeRate{
		{Date: d, Provider: "currencylayer", Currency: "EUR", Rate: decimal.RequireFromString("0.88")},
		{Date: d, Provider: "currencylayer", Currency: "CZK", Rate: decimal.RequireFromString("24.5")},
	}
	inserted, err := repo.InsertExchangeRates(ctx, records)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	inserted, err = repo.InsertExchangeRates(ctx, records)
	require.NoError(t, err)
	require.Zero(t, inserted)
}

func TestRateRepo_PeriodQueries(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	ctx := context.Background()
	repo := pg.NewRateRepo(db)
	start, end := day(2016, 2, 15), day(2016, 2, 17)

	for i, rate := range []string{"0.88", "0.89", "0.90"} {
		_, err := repo.InsertNewRate(ctx, start.AddDate(0, 0, i), "grandtrunk", "EUR", decimal.RequireFromString(rate))
		require.NoError(t, err)
	}
	_, err := repo.InsertNewRate(ctx, start, "currencylayer", "EUR", decimal.RequireFromString("0.87"))
	require.NoError(t, err)

	sums, err := repo.GetSumOfRatesInPeriod(ctx, start, end, "EUR")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	require.Equal(t, "grandtrunk", sums[0].Provider, "providers come back in registration order")
	require.EqualValues(t, 3, sums[0].Count)
	require.True(t, decimal.RequireFromString("2.67").Equal(sums[0].Sum))

	byDay, err := repo.GetRatesByDatesForCurrencyInPeriod(ctx, "EUR", start, end)
	require.NoError(t, err)
	require.Len(t, byDay, 3)
	require.Len(t, byDay[start], 2)
	require.Len(t, byDay[end], 1)
}

func TestRateRepo_GetOrCreateProviderIsIdempotent(t *testing.T) {
	db, teardown := withPostgres(t)
	defer teardown()

	ctx := context.Background()
	repo := pg.NewRateRepo(db)

	p1, err := repo.GetOrCreateProvider(ctx, "grandtrunk")
	require.NoError(t, err)
	p2, err := repo.GetOrCreateProvider(ctx, "grandtrunk")
	require.NoError(t, err)
	require.Equal(t, p1.ID, p2.ID)
}
