package application

import (
	"context"
	"errors"
	"time"

	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoRates = errors.New("provider returned no exchange rates")

// UpdateResult is the outcome of one gateway's refresh. Collecting results
// instead of swallowing errors lets callers and tests see the full picture;
// one gateway's failure never blocks the others.
type UpdateResult struct {
	Provider string
	Inserted int
	Err      error
}

// UpdateAllRatesByDate refreshes the store with every gateway's rates for one
// day.
func (s *RateService) UpdateAllRatesByDate(ctx context.Context, date time.Time) []UpdateResult {
	firstOfMonth := s.clock.Now().Day() == 1
	results := make([]UpdateResult, 0, len(s.gateways))

	for _, gw := range s.gateways {
		gw.ResetRequestLimit(firstOfMonth)
		res := UpdateResult{Provider: gw.Name()}
		s.log.Info("update started",
			zap.String("provider", gw.Name()), zap.String("date", domain.DayString(date)))

		dayRates, err := gw.GetAllByDate(ctx, date, s.supported.Slice())
		switch {
		case err != nil:
			res.Err = err
			s.log.Error("update failed",
				zap.String("provider", gw.Name()), zap.String("date", domain.DayString(date)), zap.Error(err))
		case len(dayRates) == 0:
			res.Err = ErrNoRates
			s.log.Error("update failed: no exchange rates returned",
				zap.String("provider", gw.Name()), zap.String("date", domain.DayString(date)))
		default:
			res.Inserted, res.Err = s.insertDayRates(ctx, gw.Name(), date, dayRates)
			if res.Err == nil {
				s.log.Info("update succeeded",
					zap.String("provider", gw.Name()), zap.String("date", domain.DayString(date)),
					zap.Int("inserted", res.Inserted))
			}
		}
		results = append(results, res)
	}
	return results
}

// UpdateAllHistoricalRates refreshes the store with every gateway's series
// from the origin date up to today, day by day.
func (s *RateService) UpdateAllHistoricalRates(ctx context.Context, origin time.Time) []UpdateResult {
	firstOfMonth := s.clock.Now().Day() == 1
	results := make([]UpdateResult, 0, len(s.gateways))

	for _, gw := range s.gateways {
		gw.ResetRequestLimit(firstOfMonth)
		res := UpdateResult{Provider: gw.Name()}
		s.log.Info("historical update started",
			zap.String("provider", gw.Name()), zap.String("origin", domain.DayString(origin)))

		series, err := gw.GetHistorical(ctx, origin, s.supported.Slice())
		if err != nil {
			// a partial series is still worth inserting
			res.Err = err
			s.log.Error("historical update failed",
				zap.String("provider", gw.Name()), zap.Error(err))
		}

		for day, dayRates := range series {
			inserted, err := s.insertDayRates(ctx, gw.Name(), day, dayRates)
			res.Inserted += inserted
			if err != nil && res.Err == nil {
				res.Err = err
			}
		}
		results = append(results, res)
	}
	return results
}

// insertDayRates get-or-creates the provider row and bulk-inserts one day of
// rates; duplicate rows are absorbed by the store.
func (s *RateService) insertDayRates(ctx context.Context, provider string, date time.Time, dayRates map[string]decimal.Decimal) (int, error) {
	if _, err := s.store.GetOrCreateProvider(ctx, provider); err != nil {
		return 0, err
	}
	records := make([]domain.ExchangeRate, 0, len(dayRates))
	for currency, rate := range dayRates {
		records = append(records, domain.ExchangeRate{
			Date:     date,
			Provider: provider,
			Currency: currency,
			Rate:     rate,
		})
	}
	return s.store.InsertExchangeRates(ctx, records)
}
