package calculator

import (
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
)

// PushLot adds a lot to a FIFO stack. the lot goes after every lot
// acquired on or before its date, which is a plain append unless
// the buy was back-dated behind younger lots
func PushLot(lots []domain.Lot, lot domain.Lot) []domain.Lot {
	out := make([]domain.Lot, 0, len(lots)+1)
	if !lot.Shares.IsPositive() {
		return append(out, lots...)
	}

	i := len(lots)
	if lot.Date != "" {
		for i > 0 && lots[i-1].Date > lot.Date {
			i--
		}
	}
	out = append(out, lots[:i]...)
	out = append(out, lot)
	out = append(out, lots[i:]...)
	return out
}

type ConsumeResult struct {
	RemainingLots []domain.Lot
	RemovedShares decimal.Decimal
	RemovedCost   decimal.Decimal
}

// ConsumeLots removes shares oldest-first. removed cost is the exact
// price of each consumed lot, not an average. asking for more than
// the stack holds consumes everything; callers detect the shortfall
// with RemovedShares < shares
func ConsumeLots(lots []domain.Lot, shares decimal.Decimal) ConsumeResult {
	result := ConsumeResult{
		RemainingLots: []domain.Lot{},
		RemovedShares: decimal.Zero,
		RemovedCost:   decimal.Zero,
	}
	remaining := shares
	for _, lot := range lots {
		if !remaining.IsPositive() {
			result.RemainingLots = append(result.RemainingLots, lot)
			continue
		}
		take := decimal.Min(lot.Shares, remaining)
		result.RemovedShares = result.RemovedShares.Add(take)
		result.RemovedCost = result.RemovedCost.Add(take.Mul(lot.Price))
		remaining = remaining.Sub(take)

		left := lot.Shares.Sub(take)
		if left.IsPositive() {
			result.RemainingLots = append(result.RemainingLots, domain.Lot{
				Shares: left,
				Price:  lot.Price,
				Date:   lot.Date,
			})
		}
	}
	return result
}

func TotalShares(lots []domain.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.Shares)
	}
	return total
}

func CostBasis(lots []domain.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.Shares.Mul(l.Price))
	}
	return total
}
