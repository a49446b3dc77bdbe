package calculator

import (
	"sort"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
)

type BuildInput struct {
	Date string
	// nil means no predecessor, build from an empty book
	Previous *domain.DailySnapshot
	Deltas   []domain.TradeDelta
	Prices   map[string]decimal.Decimal
	// per-share cash dividends declared for Date, keyed by ticker
	DividendRates map[string]decimal.Decimal
}

type BuildResult struct {
	Snapshot      *domain.DailySnapshot
	MissingPrices []string
	RealizedPL    decimal.Decimal
}

// BuildSnapshot derives one day's snapshot from the previous day.
// it never mutates in.Previous
func BuildSnapshot(in BuildInput) BuildResult {
	var snapshot *domain.DailySnapshot
	if in.Previous == nil {
		snapshot = domain.NewEmptySnapshot(in.Date)
	} else {
		snapshot = in.Previous.DeepCopy()
	}
	snapshot.Version = domain.SnapshotVersion
	snapshot.Date = in.Date
	snapshot.Live = false
	snapshot.ComputedAt = nil
	snapshot.Dividends = []domain.DividendEntry{}

	realized := decimal.Zero
	for _, delta := range OrderDeltas(in.Deltas) {
		realized = realized.Add(ApplyDelta(snapshot, delta))
	}

	// credited on the shares held at the close of Date, after the
	// day's trades
	snapshot.Dividends = DividendEntries(snapshot.LongShares(), in.DividendRates)
	snapshot.TotalDividendReceived = snapshot.TotalDividendReceived.Add(SumDividends(snapshot.Dividends))

	missing := Revalue(snapshot, in.Prices)
	return BuildResult{
		Snapshot:      snapshot,
		MissingPrices: missing,
		RealizedPL:    realized,
	}
}

// OrderDeltas puts entries ahead of exits so a same-day round trip
// never reads as an over-withdrawal
func OrderDeltas(deltas []domain.TradeDelta) []domain.TradeDelta {
	out := make([]domain.TradeDelta, len(deltas))
	copy(out, deltas)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsEntry() && !out[j].IsEntry()
	})
	return out
}

// ApplyDelta changes the position book and counters of s by one trade.
// valuation is left to the caller. returns the realized P/L of an exit
func ApplyDelta(s *domain.DailySnapshot, delta domain.TradeDelta) decimal.Decimal {
	s.CumulativeTrades++
	if delta.IsEntry() {
		s.CumulativeInvested = s.CumulativeInvested.Add(delta.Notional())
		switch delta.Direction {
		case domain.DirectionLong:
			p, ok := s.LongPositions[delta.Ticker]
			if !ok {
				p = &domain.LongPosition{Ticker: delta.Ticker, Lots: []domain.Lot{}}
				s.LongPositions[delta.Ticker] = p
			}
			p.Lots = PushLot(p.Lots, domain.Lot{
				Shares: delta.Shares,
				Price:  delta.Price,
				Date:   delta.Date,
			})
			p.Shares = TotalShares(p.Lots)
			p.CostBasis = CostBasis(p.Lots)
		case domain.DirectionShort:
			p, ok := s.ShortPositions[delta.Ticker]
			if !ok {
				p = &domain.ShortPosition{Ticker: delta.Ticker}
				s.ShortPositions[delta.Ticker] = p
			}
			OpenShort(p, delta.Shares, delta.Price)
		}
		return decimal.Zero
	}

	realized := decimal.Zero
	switch delta.Direction {
	case domain.DirectionLong:
		p, ok := s.LongPositions[delta.Ticker]
		if !ok {
			break
		}
		consumed := ConsumeLots(p.Lots, delta.Shares)
		realized = consumed.RemovedShares.Mul(delta.Price).Sub(consumed.RemovedCost)
		p.Lots = consumed.RemainingLots
		p.Shares = TotalShares(p.Lots)
		p.CostBasis = CostBasis(p.Lots)
		if p.Shares.IsZero() {
			delete(s.LongPositions, delta.Ticker)
		}
	case domain.DirectionShort:
		p, ok := s.ShortPositions[delta.Ticker]
		if !ok {
			break
		}
		covered := decimal.Min(p.Shares, delta.Shares)
		realized = p.AvgShortPrice.Sub(delta.Price).Mul(covered)
		p.Shares = p.Shares.Sub(covered)
		if p.Shares.IsZero() {
			delete(s.ShortPositions, delta.Ticker)
		}
	}
	if delta.RealizedPL != nil {
		realized = *delta.RealizedPL
	}
	s.CumulativeRealizedPL = s.CumulativeRealizedPL.Add(realized)
	return realized
}

type ExitAmendment struct {
	Found         bool
	RemovedShares decimal.Decimal
	RemovedCost   decimal.Decimal
	Deleted       bool
}

// AmendLongExit removes shares from an already valued long without
// a new price. market value scales by the share ratio, cost basis
// drops by the exact FIFO cost, totals move by the deltas only
func AmendLongExit(s *domain.DailySnapshot, ticker string, shares decimal.Decimal) ExitAmendment {
	p, ok := s.LongPositions[ticker]
	if !ok || !p.Shares.IsPositive() {
		return ExitAmendment{}
	}
	consumed := ConsumeLots(p.Lots, shares)
	oldMarketValue := p.MarketValue
	oldUnrealized := p.UnrealizedPL

	newShares := TotalShares(consumed.RemainingLots)
	ratio := newShares.Div(p.Shares)
	p.Lots = consumed.RemainingLots
	p.Shares = newShares
	p.CostBasis = CostBasis(consumed.RemainingLots)
	p.MarketValue = oldMarketValue.Mul(ratio)
	p.UnrealizedPL = p.MarketValue.Sub(p.CostBasis)
	if p.PriceMissing {
		p.UnrealizedPL = decimal.Zero
	}

	out := ExitAmendment{
		Found:         true,
		RemovedShares: consumed.RemovedShares,
		RemovedCost:   consumed.RemovedCost,
	}
	AdjustTotals(&s.Totals,
		p.MarketValue.Sub(oldMarketValue),
		p.UnrealizedPL.Sub(oldUnrealized),
		decimal.Zero,
		decimal.Zero,
	)
	if p.Shares.IsZero() {
		delete(s.LongPositions, ticker)
		out.Deleted = true
	}
	SyncLegacyAggregates(s)
	return out
}

// AmendShortCover scales liability and unrealized P/L by the share
// ratio. the average short price does not change on a partial cover
func AmendShortCover(s *domain.DailySnapshot, ticker string, shares decimal.Decimal) ExitAmendment {
	p, ok := s.ShortPositions[ticker]
	if !ok || !p.Shares.IsPositive() {
		return ExitAmendment{}
	}
	covered := decimal.Min(p.Shares, shares)
	oldLiability := p.Liability
	oldUnrealized := p.UnrealizedPL

	newShares := p.Shares.Sub(covered)
	ratio := newShares.Div(p.Shares)
	p.Shares = newShares
	p.Liability = oldLiability.Mul(ratio)
	p.UnrealizedPL = oldUnrealized.Mul(ratio)

	out := ExitAmendment{
		Found:         true,
		RemovedShares: covered,
		RemovedCost:   covered.Mul(p.AvgShortPrice),
	}
	AdjustTotals(&s.Totals,
		decimal.Zero,
		decimal.Zero,
		p.Liability.Sub(oldLiability),
		p.UnrealizedPL.Sub(oldUnrealized),
	)
	if p.Shares.IsZero() {
		delete(s.ShortPositions, ticker)
		out.Deleted = true
	}
	SyncLegacyAggregates(s)
	return out
}
