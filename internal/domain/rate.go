package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseProviderName marks the synthetic record for the base currency, which is
// never stored or fetched.
const BaseProviderName = "base"

// ExchangeRate is one provider's observation of a currency's rate against the
// base currency on a calendar day. (Date, Provider, Currency) is unique in
// storage; conflicting inserts mean the record is already present.
type ExchangeRate struct {
	ID               int64
	Date             time.Time
	Provider         string
	Currency         string
	Rate             decimal.Decimal
	ChangeInPercents *decimal.Decimal
}

// BaseRate synthesizes the record for the base currency: 1 by definition.
func BaseRate(currency string, date time.Time) ExchangeRate {
	return ExchangeRate{
		Date:     date,
		Provider: BaseProviderName,
		Currency: currency,
		Rate:     decimal.NewFromInt(1),
	}
}

// Day truncates t to its calendar day in UTC. All stored dates are day-only.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayString formats a date the way it is keyed in API responses.
func DayString(t time.Time) string {
	return t.Format("2006-01-02")
}
