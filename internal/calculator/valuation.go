package calculator

import (
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
)

// every valuation in the ledger goes through the functions in this
// file: forward generation, backfill, the live snapshot and price
// repair all share them

type LongValuation struct {
	Shares       decimal.Decimal
	CostBasis    decimal.Decimal
	MarketValue  decimal.Decimal
	UnrealizedPL decimal.Decimal
}

func ValuateLong(lots []domain.Lot, price decimal.Decimal) LongValuation {
	shares := TotalShares(lots)
	costBasis := CostBasis(lots)
	marketValue := shares.Mul(price)
	return LongValuation{
		Shares:       shares,
		CostBasis:    costBasis,
		MarketValue:  marketValue,
		UnrealizedPL: marketValue.Sub(costBasis),
	}
}

type ShortValuation struct {
	Liability    decimal.Decimal
	UnrealizedPL decimal.Decimal
}

// ValuateShort treats a price drop as a gain
func ValuateShort(shares, avgShortPrice, price decimal.Decimal) ShortValuation {
	return ShortValuation{
		Liability:    shares.Mul(price),
		UnrealizedPL: avgShortPrice.Sub(price).Mul(shares),
	}
}

// RevalueLong re-prices p in place. a nil price values the position
// at 0 and flags it for repair
func RevalueLong(p *domain.LongPosition, price *decimal.Decimal) {
	px := decimal.Zero
	if price != nil {
		px = *price
	}
	v := ValuateLong(p.Lots, px)
	p.Shares = v.Shares
	p.CostBasis = v.CostBasis
	p.Price = px
	p.MarketValue = v.MarketValue
	p.UnrealizedPL = v.UnrealizedPL
	p.PriceMissing = price == nil
	if price == nil {
		p.UnrealizedPL = decimal.Zero
	}
}

func RevalueShort(p *domain.ShortPosition, price *decimal.Decimal) {
	px := decimal.Zero
	if price != nil {
		px = *price
	}
	v := ValuateShort(p.Shares, p.AvgShortPrice, px)
	p.Price = px
	p.Liability = v.Liability
	p.UnrealizedPL = v.UnrealizedPL
	p.PriceMissing = price == nil
	if price == nil {
		p.UnrealizedPL = decimal.Zero
	}
}

// OpenShort adds shares to a short at a volume-weighted average price
func OpenShort(p *domain.ShortPosition, shares, price decimal.Decimal) {
	newShares := p.Shares.Add(shares)
	if !newShares.IsPositive() {
		return
	}
	notional := p.Shares.Mul(p.AvgShortPrice).Add(shares.Mul(price))
	p.AvgShortPrice = notional.Div(newShares)
	p.Shares = newShares
}

// ComputeTotals sums every position from scratch
func ComputeTotals(s *domain.DailySnapshot) domain.Totals {
	t := domain.Totals{}
	for _, p := range s.LongPositions {
		t.TotalLongMarketValue = t.TotalLongMarketValue.Add(p.MarketValue)
		t.UnrealizedPLLong = t.UnrealizedPLLong.Add(p.UnrealizedPL)
	}
	for _, p := range s.ShortPositions {
		t.TotalShortLiability = t.TotalShortLiability.Add(p.Liability)
		t.UnrealizedPLShort = t.UnrealizedPLShort.Add(p.UnrealizedPL)
	}
	t.GrossExposure = t.TotalLongMarketValue.Add(t.TotalShortLiability)
	t.EquityNoCash = t.TotalLongMarketValue.Sub(t.TotalShortLiability)
	t.UnrealizedPLNet = t.UnrealizedPLLong.Add(t.UnrealizedPLShort)
	return t
}

// AdjustTotals applies position-level changes without touching the
// positions that didn't change
func AdjustTotals(t *domain.Totals, longMarketValueDelta, longUnrealizedDelta, shortLiabilityDelta, shortUnrealizedDelta decimal.Decimal) {
	t.TotalLongMarketValue = t.TotalLongMarketValue.Add(longMarketValueDelta)
	t.TotalShortLiability = t.TotalShortLiability.Add(shortLiabilityDelta)
	t.UnrealizedPLLong = t.UnrealizedPLLong.Add(longUnrealizedDelta)
	t.UnrealizedPLShort = t.UnrealizedPLShort.Add(shortUnrealizedDelta)
	t.GrossExposure = t.TotalLongMarketValue.Add(t.TotalShortLiability)
	t.EquityNoCash = t.TotalLongMarketValue.Sub(t.TotalShortLiability)
	t.UnrealizedPLNet = t.UnrealizedPLLong.Add(t.UnrealizedPLShort)
}

// TotalPL is realized plus unrealized plus dividends
func TotalPL(s *domain.DailySnapshot) decimal.Decimal {
	return s.CumulativeRealizedPL.
		Add(s.Totals.UnrealizedPLNet).
		Add(s.TotalDividendReceived)
}

// SyncLegacyAggregates rewrites the flat fields older readers use
func SyncLegacyAggregates(s *domain.DailySnapshot) {
	costBasis := decimal.Zero
	for _, p := range s.LongPositions {
		costBasis = costBasis.Add(p.CostBasis)
	}
	s.TotalValue = s.Totals.EquityNoCash
	s.TotalCostBasis = costBasis
	s.UnrealizedPL = s.Totals.UnrealizedPLNet
	totalPL := TotalPL(s)
	s.TotalPL = &totalPL
}

// Revalue re-prices every position and recomputes totals. returns the
// held tickers that had no price
func Revalue(s *domain.DailySnapshot, prices map[string]decimal.Decimal) []string {
	missing := []string{}
	for _, ticker := range s.HeldTickers() {
		price, ok := prices[ticker]
		var px *decimal.Decimal
		if ok && price.IsPositive() {
			px = &price
		}
		if p, ok := s.LongPositions[ticker]; ok {
			RevalueLong(p, px)
		}
		if p, ok := s.ShortPositions[ticker]; ok {
			RevalueShort(p, px)
		}
		if px == nil {
			missing = append(missing, ticker)
		}
	}
	s.Totals = ComputeTotals(s)
	SyncLegacyAggregates(s)
	return missing
}
