package domain

import "regexp"

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidCurrencyCode reports whether code looks like an ISO-4217 currency code.
// Membership in the configured supported set is checked separately.
func ValidCurrencyCode(code string) bool {
	return currencyRe.MatchString(code)
}

// CurrencySet is the configured set of currencies the service handles.
type CurrencySet map[string]struct{}

func NewCurrencySet(codes ...string) CurrencySet {
	s := make(CurrencySet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CurrencySet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

func (s CurrencySet) Slice() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}
