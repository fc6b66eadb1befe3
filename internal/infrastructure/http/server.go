package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fxrates-aggregator/internal/application"
	"fxrates-aggregator/internal/domain"
)

type Server struct {
	svc  *application.RateService
	ping func(context.Context) error
	now  func() time.Time
}

type ServerOption func(*Server)

func WithPing(ping func(context.Context) error) ServerOption {
	return func(s *Server) { s.ping = ping }
}

func WithNow(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

func NewServer(svc *application.RateService, opts ...ServerOption) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

type rateResponse struct {
	Date         string `json:"date"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	ExchangeRate string `json:"exchange_rate"`
}

type rangeResponse struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	ExchangeRate string `json:"exchange_rate"`
}

type seriesResponse struct {
	FromCurrency string            `json:"from_currency"`
	ToCurrency   string            `json:"to_currency"`
	Rates        map[string]string `json:"rates"`
}

func (s *Server) GetRate(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.currencyPair(w, r)
	if !ok {
		return
	}
	date, ok := s.dateParam(w, r, "date", domain.Day(s.now()))
	if !ok {
		return
	}

	rate, err := s.svc.GetExchangeRateByDate(r.Context(), date, from, to)
	if err != nil {
		rateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{
		Date:         domain.DayString(date),
		FromCurrency: from,
		ToCurrency:   to,
		ExchangeRate: rate.String(),
	})
}

func (s *Server) GetAverageRate(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.currencyPair(w, r)
	if !ok {
		return
	}
	start, end, ok := s.dateRange(w, r)
	if !ok {
		return
	}

	rate, err := s.svc.GetAverageExchangeRateByDates(r.Context(), start, end, from, to)
	if err != nil {
		rateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rangeResponse{
		StartDate:    domain.DayString(start),
		EndDate:      domain.DayString(end),
		FromCurrency: from,
		ToCurrency:   to,
		ExchangeRate: rate.String(),
	})
}

func (s *Server) GetRateSeries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.currencyPair(w, r)
	if !ok {
		return
	}
	start, end, ok := s.dateRange(w, r)
	if !ok {
		return
	}

	rates, err := s.svc.GetExchangeRatesByDates(r.Context(), start, end, from, to)
	if err != nil {
		rateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		FromCurrency: from,
		ToCurrency:   to,
		Rates:        rates,
	})
}

// currencyPair validates the from/to query parameters against the supported
// set before any engine work happens.
func (s *Server) currencyPair(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "'from' and 'to' parameters are required")
		return "", "", false
	}
	var invalid []string
	for _, currency := range []string{from, to} {
		if !domain.ValidCurrencyCode(currency) || !s.svc.Supported().Contains(currency) {
			invalid = append(invalid, currency)
		}
	}
	if len(invalid) > 0 {
		writeError(w, http.StatusBadRequest, "invalid currency: "+strings.Join(invalid, " and "))
		return "", "", false
	}
	return from, to, true
}

func (s *Server) dateParam(w http.ResponseWriter, r *http.Request, name string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid '"+name+"' date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return domain.Day(date), true
}

func (s *Server) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	if r.URL.Query().Get("start_date") == "" || r.URL.Query().Get("end_date") == "" {
		writeError(w, http.StatusBadRequest, "'start_date' and 'end_date' parameters are required")
		return time.Time{}, time.Time{}, false
	}
	start, ok := s.dateParam(w, r, "start_date", time.Time{})
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := s.dateParam(w, r, "end_date", time.Time{})
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func rateError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrMissingRate) || errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "exchange rate not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
