package application

import (
	"fxrates-aggregator/internal/domain"

	"github.com/shopspring/decimal"
)

type diffGroup struct {
	diff   decimal.Decimal
	values []decimal.Decimal
}

// PickTheBest collapses independent observations of the same (date, currency)
// into one trusted value. Callers supply observations ordered by provider
// priority.
//
// With one or two observations the first wins. With three or more, values are
// grouped by the pairwise absolute difference that produced them and the group
// with the smallest difference is selected: a two-member group resolves to its
// first member, a larger group to its most frequent value (stable mode). This
// suppresses outlier providers without averaging across them.
func PickTheBest(rates []decimal.Decimal) (decimal.Decimal, error) {
	if len(rates) == 0 {
		return decimal.Decimal{}, domain.ErrMissingRate
	}
	if len(rates) <= 2 {
		return rates[0], nil
	}

	var groups []*diffGroup
	groupFor := func(d decimal.Decimal) *diffGroup {
		for _, g := range groups {
			if g.diff.Equal(d) {
				return g
			}
		}
		g := &diffGroup{diff: d}
		groups = append(groups, g)
		return g
	}

	for i := 0; i < len(rates); i++ {
		for j := i + 1; j < len(rates); j++ {
			g := groupFor(rates[i].Sub(rates[j]).Abs())
			g.values = append(g.values, rates[i], rates[j])
		}
	}

	closest := groups[0]
	for _, g := range groups[1:] {
		if g.diff.Cmp(closest.diff) < 0 {
			closest = g
		}
	}

	if len(closest.values) == 2 {
		return closest.values[0], nil
	}
	return stableMode(closest.values), nil
}

// stableMode returns the most frequent value; ties resolve to the value
// encountered first.
func stableMode(values []decimal.Decimal) decimal.Decimal {
	type entry struct {
		value decimal.Decimal
		count int
	}
	var entries []*entry
next:
	for _, v := range values {
		for _, e := range entries {
			if e.value.Equal(v) {
				e.count++
				continue next
			}
		}
		entries = append(entries, &entry{value: v, count: 1})
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if e.count > best.count {
			best = e
		}
	}
	return best.value
}
