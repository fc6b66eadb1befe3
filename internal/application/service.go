package application

import (
	"context"
	"fmt"
	"time"

	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var two = decimal.NewFromInt(2)

// RateService reconciles possibly-conflicting rates from multiple provider
// gateways into single trusted values, backfilling the store on demand.
// Gateways are kept in an ordered slice: their position is the provider
// priority that feeds tie-breaks in PickTheBest.
type RateService struct {
	store        RateStore
	gateways     []ProviderGateway
	baseCurrency string
	supported    domain.CurrencySet
	clock        Clock
	log          *zap.Logger
}

type Option func(*RateService)

func WithClock(c Clock) Option        { return func(s *RateService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *RateService) { s.log = l } }

func NewRateService(store RateStore, gateways []ProviderGateway, baseCurrency string, supported domain.CurrencySet, opts ...Option) *RateService {
	s := &RateService{
		store:        store,
		gateways:     gateways,
		baseCurrency: baseCurrency,
		supported:    supported,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *RateService) BaseCurrency() string          { return s.baseCurrency }
func (s *RateService) Supported() domain.CurrencySet { return s.supported }

// FutureDateToToday clamps a strictly-future date to today.
func (s *RateService) FutureDateToToday(date time.Time) time.Time {
	today := domain.Day(s.clock.Now())
	if date.After(today) {
		s.log.Warn("future date requested, using today instead",
			zap.String("requested", domain.DayString(date)))
		return today
	}
	return date
}

// GetOrUpdateRateByDate returns all observations for (date, currency),
// backfilling the store from gateways that have no stored value yet. A
// gateway failure only omits that gateway from the result; it never fails
// the whole read.
func (s *RateService) GetOrUpdateRateByDate(ctx context.Context, date time.Time, currency string) []domain.ExchangeRate {
	if currency == s.baseCurrency {
		return []domain.ExchangeRate{domain.BaseRate(currency, date)}
	}

	today := domain.Day(s.clock.Now())
	records, err := s.store.GetRatesByDateCurrency(ctx, date, currency)
	if err != nil {
		s.log.Error("reading stored rates failed",
			zap.String("currency", currency), zap.String("date", domain.DayString(date)), zap.Error(err))
		records = nil
	}

	have := make(map[string]struct{}, len(records))
	for _, r := range records {
		have[r.Provider] = struct{}{}
	}

	for _, gw := range s.gateways {
		if _, ok := have[gw.Name()]; ok {
			continue
		}
		if date.Equal(today) {
			// Providers publish once a day; today's value may not exist yet,
			// so yesterday's stored rate stands in without a network call.
			prev, err := s.store.GetRateByDateCurrencyProvider(ctx, date.AddDate(0, 0, -1), currency, gw.Name())
			if err == nil {
				s.log.Info("today's rate not ready, using yesterday's",
					zap.String("provider", gw.Name()), zap.String("currency", currency))
				records = append(records, prev)
				continue
			}
			s.log.Info("yesterday's rate not found, requesting API",
				zap.String("provider", gw.Name()), zap.String("currency", currency))
		} else if gw.HasRequestLimit() {
			// Historical backfill can burn through a vendor quota in one
			// request burst; quota-bearing gateways sit it out.
			s.log.Info("skipping historical backfill for quota-bearing provider",
				zap.String("provider", gw.Name()), zap.String("date", domain.DayString(date)))
			continue
		}

		rec, err := s.fetchAndStore(ctx, gw, date, currency, today)
		if err != nil {
			s.log.Error("requesting exchange rate failed",
				zap.String("provider", gw.Name()), zap.String("currency", currency),
				zap.String("date", domain.DayString(date)), zap.Error(err))
			continue
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

func (s *RateService) fetchAndStore(ctx context.Context, gw ProviderGateway, date time.Time, currency string, today time.Time) (*domain.ExchangeRate, error) {
	supported, err := gw.GetSupportedCurrencies(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("supported currencies: %w", err)
	}
	if _, ok := supported[currency]; !ok {
		return nil, nil
	}
	rate, ok, err := gw.GetByDate(ctx, date, currency)
	if err != nil {
		return nil, fmt.Errorf("get by date: %w", err)
	}
	if !ok {
		return nil, nil
	}
	rec, err := s.store.InsertNewRate(ctx, date, gw.Name(), currency, rate)
	if err != nil {
		return nil, fmt.Errorf("insert rate: %w", err)
	}
	return &rec, nil
}

// GetExchangeRateByDate computes the rate between two currencies on one day:
// best(to) / best(from). An unresolvable side is reported as ErrMissingRate.
func (s *RateService) GetExchangeRateByDate(ctx context.Context, date time.Time, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	date = s.FutureDateToToday(date)

	fromRecords := s.GetOrUpdateRateByDate(ctx, date, fromCurrency)
	toRecords := s.GetOrUpdateRateByDate(ctx, date, toCurrency)

	bestFrom, err := PickTheBest(ratesOf(fromRecords))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s on %s: %w", fromCurrency, domain.DayString(date), err)
	}
	bestTo, err := PickTheBest(ratesOf(toRecords))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s on %s: %w", toCurrency, domain.DayString(date), err)
	}

	s.log.Debug("picked best rates",
		zap.String("from", fromCurrency), zap.String("from_best", bestFrom.String()),
		zap.String("to", toCurrency), zap.String("to_best", bestTo.String()))

	return bestTo.Div(bestFrom), nil
}

// GetExchangeRatesByDates computes a per-day series over an inclusive range,
// keyed YYYY-MM-DD. Days with no stored value borrow the mean of both
// neighbors' bests; days where that also fails are dropped from the map while
// the rest of the range still returns.
func (s *RateService) GetExchangeRatesByDates(ctx context.Context, startDate, endDate time.Time, fromCurrency, toCurrency string) (map[string]string, error) {
	if startDate.After(endDate) {
		startDate, endDate = endDate, startDate
	}
	days := enumerateDays(startDate, endDate)

	out := make(map[string]string, len(days))
	if fromCurrency == toCurrency {
		for _, d := range days {
			out[domain.DayString(d)] = "1.0"
		}
		return out, nil
	}

	fromByDay, err := s.ratesByDay(ctx, fromCurrency, startDate, endDate, days)
	if err != nil {
		return nil, err
	}
	toByDay, err := s.ratesByDay(ctx, toCurrency, startDate, endDate, days)
	if err != nil {
		return nil, err
	}

	for _, d := range days {
		bestFrom, errFrom := s.bestForDay(fromByDay, d, fromCurrency)
		bestTo, errTo := s.bestForDay(toByDay, d, toCurrency)
		if errFrom != nil || errTo != nil {
			s.log.Warn("could not determine exchange rate",
				zap.String("date", domain.DayString(d)),
				zap.String("from", fromCurrency), zap.String("to", toCurrency))
			continue
		}
		out[domain.DayString(d)] = bestTo.Div(bestFrom).String()
	}
	return out, nil
}

// ratesByDay fetches the whole range for one currency in a single store
// query. The base currency is synthesized, never queried.
func (s *RateService) ratesByDay(ctx context.Context, currency string, start, end time.Time, days []time.Time) (map[time.Time][]decimal.Decimal, error) {
	if currency == s.baseCurrency {
		m := make(map[time.Time][]decimal.Decimal, len(days))
		for _, d := range days {
			m[d] = []decimal.Decimal{decimal.NewFromInt(1)}
		}
		return m, nil
	}
	m, err := s.store.GetRatesByDatesForCurrencyInPeriod(ctx, currency, start, end)
	if err != nil {
		return nil, fmt.Errorf("rates for %s in period: %w", currency, err)
	}
	return m, nil
}

// bestForDay resolves one day from the batched per-day map. An empty day is
// interpolated as the mean of the neighboring days' bests when both resolve.
func (s *RateService) bestForDay(byDay map[time.Time][]decimal.Decimal, day time.Time, currency string) (decimal.Decimal, error) {
	if rates := byDay[day]; len(rates) > 0 {
		return PickTheBest(rates)
	}

	prevBest, errPrev := PickTheBest(byDay[day.AddDate(0, 0, -1)])
	nextBest, errNext := PickTheBest(byDay[day.AddDate(0, 0, 1)])
	if errPrev != nil || errNext != nil {
		return decimal.Decimal{}, domain.ErrMissingRate
	}

	s.log.Warn("using average of neighboring days",
		zap.String("date", domain.DayString(day)), zap.String("currency", currency))
	return prevBest.Add(nextBest).Div(two), nil
}

// GetAverageExchangeRateByDates computes one averaged rate over a span. A
// range reaching into the future degrades to a single-day lookup at today.
func (s *RateService) GetAverageExchangeRateByDates(ctx context.Context, startDate, endDate time.Time, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	clamped := s.FutureDateToToday(startDate)
	if !clamped.Equal(startDate) {
		return s.GetExchangeRateByDate(ctx, clamped, fromCurrency, toCurrency)
	}

	numberOfDays := daysBetween(startDate, endDate) + 1

	fromSums, err := s.sumOfRatesInPeriod(ctx, startDate, endDate, fromCurrency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	toSums, err := s.sumOfRatesInPeriod(ctx, startDate, endDate, toCurrency)
	if err != nil {
		return decimal.Decimal{}, err
	}

	for _, pair := range joinByProvider(fromSums, toSums) {
		from, to := pair[0], pair[1]
		s.log.Info("period sums",
			zap.String("from_currency", fromCurrency), zap.Int64("from_count", from.Count), zap.String("from_sum", from.Sum.String()),
			zap.String("to_currency", toCurrency), zap.Int64("to_count", to.Count), zap.String("to_sum", to.Sum.String()),
			zap.String("from_provider", from.Provider), zap.String("to_provider", to.Provider))

		if from.Count != int64(numberOfDays) && from.Provider != domain.BaseProviderName {
			s.log.Warn("provider is missing days in range",
				zap.String("provider", from.Provider), zap.Int64("missing", int64(numberOfDays)-from.Count),
				zap.String("currency", fromCurrency))
		}
		if to.Count != int64(numberOfDays) && to.Provider != domain.BaseProviderName {
			s.log.Warn("provider is missing days in range",
				zap.String("provider", to.Provider), zap.Int64("missing", int64(numberOfDays)-to.Count),
				zap.String("currency", toCurrency))
		}

		if from.Count > 0 && !from.Sum.IsZero() && to.Count > 0 && !to.Sum.IsZero() {
			fromAverage := from.Sum.Div(decimal.NewFromInt(from.Count))
			toAverage := to.Sum.Div(decimal.NewFromInt(to.Count))
			return toAverage.Div(fromAverage), nil
		}
		s.log.Error("period count and/or sum are empty",
			zap.String("from_provider", from.Provider), zap.String("to_provider", to.Provider))
	}

	s.log.Error("range request failed",
		zap.String("from", fromCurrency), zap.String("to", toCurrency),
		zap.String("start", domain.DayString(startDate)), zap.String("end", domain.DayString(endDate)))
	return decimal.Decimal{}, domain.ErrMissingRate
}

func (s *RateService) sumOfRatesInPeriod(ctx context.Context, start, end time.Time, currency string) ([]domain.RateSum, error) {
	if currency == s.baseCurrency {
		return []domain.RateSum{{Provider: domain.BaseProviderName, Count: 1, Sum: decimal.NewFromInt(1)}}, nil
	}
	sums, err := s.store.GetSumOfRatesInPeriod(ctx, start, end, currency)
	if err != nil {
		return nil, fmt.Errorf("sum of rates for %s: %w", currency, err)
	}
	return sums, nil
}

// joinByProvider pairs the two per-provider aggregate lists by provider
// identity, preserving the from-side order. The base-currency sentinel pairs
// with every counterpart.
func joinByProvider(from, to []domain.RateSum) [][2]domain.RateSum {
	var pairs [][2]domain.RateSum
	switch {
	case len(from) == 1 && from[0].Provider == domain.BaseProviderName:
		for _, t := range to {
			pairs = append(pairs, [2]domain.RateSum{from[0], t})
		}
	case len(to) == 1 && to[0].Provider == domain.BaseProviderName:
		for _, f := range from {
			pairs = append(pairs, [2]domain.RateSum{f, to[0]})
		}
	default:
		byName := make(map[string]domain.RateSum, len(to))
		for _, t := range to {
			byName[t.Provider] = t
		}
		for _, f := range from {
			if t, ok := byName[f.Provider]; ok {
				pairs = append(pairs, [2]domain.RateSum{f, t})
			}
		}
	}
	return pairs
}

func ratesOf(records []domain.ExchangeRate) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		out = append(out, r.Rate)
	}
	return out
}

func enumerateDays(start, end time.Time) []time.Time {
	days := make([]time.Time, 0, daysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func daysBetween(a, b time.Time) int {
	n := int(b.Sub(a).Hours() / 24)
	if n < 0 {
		n = -n
	}
	return n
}
