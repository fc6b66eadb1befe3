package domain

import "github.com/shopspring/decimal"

// Provider is a named external source of exchange-rate data. Rows are created
// lazily on the first successful insert from that source. Priority is the
// configured gateway order, not the database id.
type Provider struct {
	ID   int
	Name string
}

// RateSum is a per-provider aggregate over a date range: how many daily
// observations the provider contributed and their sum.
type RateSum struct {
	Provider string
	Count    int64
	Sum      decimal.Decimal
}
