package application

import (
	"context"
	"time"

	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeStore struct {
	records   []domain.ExchangeRate
	providers map[string]int

	reads   int
	inserts int
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{providers: map[string]int{}}
}

func (f *fakeStore) add(date time.Time, provider, currency, rate string) {
	f.mustProvider(provider)
	f.records = append(f.records, domain.ExchangeRate{
		Date:     date,
		Provider: provider,
		Currency: currency,
		Rate:     decimal.RequireFromString(rate),
	})
}

func (f *fakeStore) mustProvider(name string) int {
	if id, ok := f.providers[name]; ok {
		return id
	}
	id := len(f.providers) + 1
	f.providers[name] = id
	return id
}

func (f *fakeStore) GetRatesByDateCurrency(_ context.Context, date time.Time, currency string) ([]domain.ExchangeRate, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ExchangeRate
	for _, r := range f.records {
		if r.Date.Equal(date) && r.Currency == currency {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRateByDateCurrencyProvider(_ context.Context, date time.Time, currency, provider string) (domain.ExchangeRate, error) {
	f.reads++
	for _, r := range f.records {
		if r.Date.Equal(date) && r.Currency == currency && r.Provider == provider {
			return r, nil
		}
	}
	return domain.ExchangeRate{}, domain.ErrNotFound
}

func (f *fakeStore) InsertNewRate(_ context.Context, date time.Time, provider, currency string, rate decimal.Decimal) (domain.ExchangeRate, error) {
	if f.err != nil {
		return domain.ExchangeRate{}, f.err
	}
	for _, r := range f.records {
		if r.Date.Equal(date) && r.Currency == currency && r.Provider == provider {
			return r, nil
		}
	}
	f.mustProvider(provider)
	rec := domain.ExchangeRate{Date: date, Provider: provider, Currency: currency, Rate: rate}
	f.records = append(f.records, rec)
	f.inserts++
	return rec, nil
}

func (f *fakeStore) InsertExchangeRates(_ context.Context, records []domain.ExchangeRate) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	inserted := 0
next:
	for _, rec := range records {
		for _, r := range f.records {
			if r.Date.Equal(rec.Date) && r.Currency == rec.Currency && r.Provider == rec.Provider {
				continue next
			}
		}
		f.records = append(f.records, rec)
		inserted++
	}
	f.inserts += inserted
	return inserted, nil
}

func (f *fakeStore) GetOrCreateProvider(_ context.Context, name string) (domain.Provider, error) {
	if f.err != nil {
		return domain.Provider{}, f.err
	}
	return domain.Provider{ID: f.mustProvider(name), Name: name}, nil
}

func (f *fakeStore) GetSumOfRatesInPeriod(_ context.Context, start, end time.Time, currency string) ([]domain.RateSum, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	byProvider := map[string]*domain.RateSum{}
	var order []string
	for _, r := range f.records {
		if r.Currency != currency || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		s, ok := byProvider[r.Provider]
		if !ok {
			s = &domain.RateSum{Provider: r.Provider}
			byProvider[r.Provider] = s
			order = append(order, r.Provider)
		}
		s.Count++
		s.Sum = s.Sum.Add(r.Rate)
	}
	out := make([]domain.RateSum, 0, len(order))
	for _, name := range order {
		out = append(out, *byProvider[name])
	}
	return out, nil
}

func (f *fakeStore) GetRatesByDatesForCurrencyInPeriod(_ context.Context, currency string, start, end time.Time) (map[time.Time][]decimal.Decimal, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	out := map[time.Time][]decimal.Decimal{}
	for _, r := range f.records {
		if r.Currency != currency || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out[r.Date] = append(out[r.Date], r.Rate)
	}
	return out, nil
}

type fakeGateway struct {
	name      string
	limited   bool
	supported map[string]struct{}

	byDate     map[string]decimal.Decimal            // "2016-02-17|EUR"
	allByDate  map[string]map[string]decimal.Decimal // "2016-02-17"
	historical map[time.Time]map[string]decimal.Decimal
	err        error

	fetches int
	resets  []bool
}

func newFakeGateway(name string, currencies ...string) *fakeGateway {
	g := &fakeGateway{name: name, supported: map[string]struct{}{}}
	for _, c := range currencies {
		g.supported[c] = struct{}{}
	}
	return g
}

func (g *fakeGateway) rate(date time.Time, currency, rate string) *fakeGateway {
	if g.byDate == nil {
		g.byDate = map[string]decimal.Decimal{}
	}
	g.byDate[domain.DayString(date)+"|"+currency] = decimal.RequireFromString(rate)
	return g
}

func (g *fakeGateway) Name() string          { return g.name }
func (g *fakeGateway) HasRequestLimit() bool { return g.limited }

func (g *fakeGateway) ResetRequestLimit(firstOfMonth bool) {
	g.resets = append(g.resets, firstOfMonth)
}

func (g *fakeGateway) GetSupportedCurrencies(context.Context, time.Time) (map[string]struct{}, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.supported, nil
}

func (g *fakeGateway) GetByDate(_ context.Context, date time.Time, currency string) (decimal.Decimal, bool, error) {
	g.fetches++
	if g.err != nil {
		return decimal.Decimal{}, false, g.err
	}
	r, ok := g.byDate[domain.DayString(date)+"|"+currency]
	return r, ok, nil
}

func (g *fakeGateway) GetAllByDate(_ context.Context, date time.Time, _ []string) (map[string]decimal.Decimal, error) {
	g.fetches++
	if g.err != nil {
		return nil, g.err
	}
	return g.allByDate[domain.DayString(date)], nil
}

func (g *fakeGateway) GetHistorical(context.Context, time.Time, []string) (map[time.Time]map[string]decimal.Decimal, error) {
	g.fetches++
	if g.err != nil {
		return nil, g.err
	}
	return g.historical, nil
}
