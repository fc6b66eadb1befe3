package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RateRepo persists exchange-rate records. Uniqueness of
// (date, provider, currency) is the table's constraint; conflicting inserts
// are absorbed, never surfaced as errors.
type RateRepo struct{ db *DB }

var _ application.RateStore = (*RateRepo)(nil)

func NewRateRepo(db *DB) *RateRepo { return &RateRepo{db: db} }

const selectRate = `
    SELECT er.id, er.date, p.name, er.currency, er.rate::text, er.change_in_percents::text
    FROM exchange_rate er
    JOIN provider p ON p.id = er.provider_id`

func scanRate(row pgx.Row) (domain.ExchangeRate, error) {
	var (
		out       domain.ExchangeRate
		rateStr   *string
		changeStr *string
	)
	if err := row.Scan(&out.ID, &out.Date, &out.Provider, &out.Currency, &rateStr, &changeStr); err != nil {
		return domain.ExchangeRate{}, err
	}
	out.Date = domain.Day(out.Date)
	if rateStr != nil {
		rate, err := decimal.NewFromString(*rateStr)
		if err != nil {
			return domain.ExchangeRate{}, fmt.Errorf("parse stored rate: %w", err)
		}
		out.Rate = rate
	}
	if changeStr != nil {
		change, err := decimal.NewFromString(*changeStr)
		if err != nil {
			return domain.ExchangeRate{}, fmt.Errorf("parse stored change: %w", err)
		}
		out.ChangeInPercents = &change
	}
	return out, nil
}

func (r *RateRepo) GetRatesByDateCurrency(ctx context.Context, date time.Time, currency string) ([]domain.ExchangeRate, error) {
	const q = selectRate + `
        WHERE er.date = $1 AND er.currency = $2 AND er.rate IS NOT NULL
        ORDER BY er.provider_id`
	rows, err := r.db.Pool.Query(ctx, q, date, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExchangeRate
	for rows.Next() {
		rec, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RateRepo) GetRateByDateCurrencyProvider(ctx context.Context, date time.Time, currency, provider string) (domain.ExchangeRate, error) {
	const q = selectRate + `
        WHERE er.date = $1 AND er.currency = $2 AND p.name = $3 AND er.rate IS NOT NULL`
	rec, err := scanRate(r.db.Pool.QueryRow(ctx, q, date, currency, provider))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	return rec, err
}

// InsertNewRate persists one observation, creating the provider row lazily.
// A concurrent duplicate insert is resolved by re-reading the existing row.
func (r *RateRepo) InsertNewRate(ctx context.Context, date time.Time, provider, currency string, rate decimal.Decimal) (domain.ExchangeRate, error) {
	p, err := r.GetOrCreateProvider(ctx, provider)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	const q = `
        INSERT INTO exchange_rate (date, provider_id, currency, rate)
        VALUES ($1, $2, $3, $4::numeric)
        ON CONFLICT (date, provider_id, currency) DO NOTHING`
	if _, err := r.db.Pool.Exec(ctx, q, date, p.ID, currency, rate.String()); err != nil {
		return domain.ExchangeRate{}, err
	}
	return r.GetRateByDateCurrencyProvider(ctx, date, currency, provider)
}

// InsertExchangeRates bulk-inserts, tolerating duplicates. Returns how many
// rows were actually new.
func (r *RateRepo) InsertExchangeRates(ctx context.Context, records []domain.ExchangeRate) (int, error) {
	const q = `
        INSERT INTO exchange_rate (date, provider_id, currency, rate)
        VALUES ($1, $2, $3, $4::numeric)
        ON CONFLICT (date, provider_id, currency) DO NOTHING`

	providerIDs := map[string]int{}
	inserted := 0
	for _, rec := range records {
		id, ok := providerIDs[rec.Provider]
		if !ok {
			p, err := r.GetOrCreateProvider(ctx, rec.Provider)
			if err != nil {
				return inserted, err
			}
			id = p.ID
			providerIDs[rec.Provider] = id
		}
		tag, err := r.db.Pool.Exec(ctx, q, rec.Date, id, rec.Currency, rec.Rate.String())
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *RateRepo) GetOrCreateProvider(ctx context.Context, name string) (domain.Provider, error) {
	const q = `
        WITH ins AS (
            INSERT INTO provider (name) VALUES ($1)
            ON CONFLICT (name) DO NOTHING
            RETURNING id
        )
        SELECT id FROM ins
        UNION ALL
        SELECT id FROM provider WHERE name = $1
        LIMIT 1`
	var id int
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&id); err != nil {
		return domain.Provider{}, err
	}
	return domain.Provider{ID: id, Name: name}, nil
}

func (r *RateRepo) GetSumOfRatesInPeriod(ctx context.Context, start, end time.Time, currency string) ([]domain.RateSum, error) {
	const q = `
        SELECT p.name, COUNT(*), SUM(er.rate)::text
        FROM exchange_rate er
        JOIN provider p ON p.id = er.provider_id
        WHERE er.date >= $1 AND er.date <= $2 AND er.currency = $3 AND er.rate IS NOT NULL
        GROUP BY er.provider_id, p.name
        ORDER BY er.provider_id`
	rows, err := r.db.Pool.Query(ctx, q, start, end, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateSum
	for rows.Next() {
		var (
			s      domain.RateSum
			sumStr string
		)
		if err := rows.Scan(&s.Provider, &s.Count, &sumStr); err != nil {
			return nil, err
		}
		if s.Sum, err = decimal.NewFromString(sumStr); err != nil {
			return nil, fmt.Errorf("parse rate sum: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *RateRepo) GetRatesByDatesForCurrencyInPeriod(ctx context.Context, currency string, start, end time.Time) (map[time.Time][]decimal.Decimal, error) {
	const q = `
        SELECT er.date, array_agg(er.rate::text ORDER BY er.provider_id)
        FROM exchange_rate er
        WHERE er.date >= $1 AND er.date <= $2 AND er.currency = $3 AND er.rate IS NOT NULL
        GROUP BY er.date
        ORDER BY er.date`
	rows, err := r.db.Pool.Query(ctx, q, start, end, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[time.Time][]decimal.Decimal{}
	for rows.Next() {
		var (
			day      time.Time
			rateStrs []string
		)
		if err := rows.Scan(&day, &rateStrs); err != nil {
			return nil, err
		}
		rates := make([]decimal.Decimal, 0, len(rateStrs))
		for _, s := range rateStrs {
			rate, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("parse stored rate: %w", err)
			}
			rates = append(rates, rate)
		}
		out[domain.Day(day)] = rates
	}
	return out, rows.Err()
}
