package inmem

import (
	"context"
	"sync"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

// Store is an in-memory RateStore for local development and tests. It mirrors
// the pg repo's semantics: append-only records, duplicate inserts absorbed,
// providers registered lazily in first-seen order.
type Store struct {
	mu        sync.Mutex
	records   []domain.ExchangeRate
	providers map[string]int
}

var _ application.RateStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{providers: map[string]int{}}
}

// Seed inserts a record directly; intended for test and dev setup.
func (s *Store) Seed(date time.Time, provider, currency, rate string) {
	_, _ = s.InsertNewRate(context.Background(), date, provider, currency, decimal.RequireFromString(rate))
}

func (s *Store) providerID(name string) int {
	if id, ok := s.providers[name]; ok {
		return id
	}
	id := len(s.providers) + 1
	s.providers[name] = id
	return id
}

func (s *Store) find(date time.Time, provider, currency string) *domain.ExchangeRate {
	for i := range s.records {
		r := &s.records[i]
		if r.Date.Equal(date) && r.Provider == provider && r.Currency == currency {
			return r
		}
	}
	return nil
}

func (s *Store) GetRatesByDateCurrency(_ context.Context, date time.Time, currency string) ([]domain.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ExchangeRate
	for _, r := range s.records {
		if r.Date.Equal(date) && r.Currency == currency {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetRateByDateCurrencyProvider(_ context.Context, date time.Time, currency, provider string) (domain.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(date, provider, currency); r != nil {
		return *r, nil
	}
	return domain.ExchangeRate{}, domain.ErrNotFound
}

func (s *Store) InsertNewRate(_ context.Context, date time.Time, provider, currency string, rate decimal.Decimal) (domain.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(date, provider, currency); r != nil {
		return *r, nil
	}
	s.providerID(provider)
	rec := domain.ExchangeRate{
		ID:       int64(len(s.records) + 1),
		Date:     date,
		Provider: provider,
		Currency: currency,
		Rate:     rate,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) InsertExchangeRates(_ context.Context, records []domain.ExchangeRate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, rec := range records {
		if s.find(rec.Date, rec.Provider, rec.Currency) != nil {
			continue
		}
		s.providerID(rec.Provider)
		rec.ID = int64(len(s.records) + 1)
		s.records = append(s.records, rec)
		inserted++
	}
	return inserted, nil
}

func (s *Store) GetOrCreateProvider(_ context.Context, name string) (domain.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Provider{ID: s.providerID(name), Name: name}, nil
}

func (s *Store) GetSumOfRatesInPeriod(_ context.Context, start, end time.Time, currency string) ([]domain.RateSum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byProvider := map[string]*domain.RateSum{}
	var order []string
	for _, r := range s.records {
		if r.Currency != currency || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		agg, ok := byProvider[r.Provider]
		if !ok {
			agg = &domain.RateSum{Provider: r.Provider}
			byProvider[r.Provider] = agg
			order = append(order, r.Provider)
		}
		agg.Count++
		agg.Sum = agg.Sum.Add(r.Rate)
	}
	out := make([]domain.RateSum, 0, len(order))
	for _, name := range order {
		out = append(out, *byProvider[name])
	}
	return out, nil
}

func (s *Store) GetRatesByDatesForCurrencyInPeriod(_ context.Context, currency string, start, end time.Time) (map[time.Time][]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[time.Time][]decimal.Decimal{}
	for _, r := range s.records {
		if r.Currency != currency || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out[r.Date] = append(out[r.Date], r.Rate)
	}
	return out, nil
}
