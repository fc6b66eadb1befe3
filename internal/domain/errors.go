package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrMissingRate         = errors.New("missing exchange rate")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)
