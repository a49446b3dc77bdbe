package calculator

import (
	"sort"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
)

// DividendEntries credits each declared per-share rate against the
// long shares held. shorts never receive dividends
func DividendEntries(shares map[string]decimal.Decimal, rates map[string]decimal.Decimal) []domain.DividendEntry {
	out := []domain.DividendEntry{}
	for ticker, rate := range rates {
		held, ok := shares[ticker]
		if !ok || !held.IsPositive() || !rate.IsPositive() {
			continue
		}
		out = append(out, domain.DividendEntry{
			Ticker:         ticker,
			Shares:         held,
			AmountPerShare: rate,
			Amount:         held.Mul(rate),
		})
	}
	sortDividends(out)
	return out
}

// ConvergeDividends replaces the entries of every ticker in scope with
// desired and leaves the rest alone. delta is how much the credited
// total moved, so applying the same desired set twice yields zero
func ConvergeDividends(current, desired []domain.DividendEntry, scope map[string]decimal.Decimal) ([]domain.DividendEntry, decimal.Decimal) {
	out := []domain.DividendEntry{}
	delta := decimal.Zero
	for _, e := range current {
		if _, ok := scope[e.Ticker]; ok {
			delta = delta.Sub(e.Amount)
			continue
		}
		out = append(out, e)
	}
	for _, e := range desired {
		if _, ok := scope[e.Ticker]; !ok {
			continue
		}
		delta = delta.Add(e.Amount)
		out = append(out, e)
	}
	sortDividends(out)
	return out, delta
}

func SumDividends(entries []domain.DividendEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

func sortDividends(entries []domain.DividendEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Ticker != entries[j].Ticker {
			return entries[i].Ticker < entries[j].Ticker
		}
		return entries[i].AmountPerShare.LessThan(entries[j].AmountPerShare)
	})
}
