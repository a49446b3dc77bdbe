package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const SnapshotVersion = 2

type LongPosition struct {
	Ticker       string          `json:"ticker"`
	Lots         []Lot           `json:"lots"`
	Shares       decimal.Decimal `json:"shares"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	Price        decimal.Decimal `json:"price"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
	// set when the oracle had no price and the position was valued at 0
	PriceMissing bool `json:"priceMissing,omitempty"`
}

func (p LongPosition) DeepCopy() *LongPosition {
	out := p
	out.Lots = make([]Lot, len(p.Lots))
	copy(out.Lots, p.Lots)
	return &out
}

// ShortPosition carries a single weighted average price, no lots.
// partial covers leave AvgShortPrice unchanged
type ShortPosition struct {
	Ticker        string          `json:"ticker"`
	Shares        decimal.Decimal `json:"shares"`
	AvgShortPrice decimal.Decimal `json:"avgShortPrice"`
	Price         decimal.Decimal `json:"price"`
	Liability     decimal.Decimal `json:"liability"`
	UnrealizedPL  decimal.Decimal `json:"unrealizedPL"`
	PriceMissing  bool            `json:"priceMissing,omitempty"`
}

func (p ShortPosition) DeepCopy() *ShortPosition {
	out := p
	return &out
}

type Totals struct {
	TotalLongMarketValue decimal.Decimal `json:"totalLongMarketValue"`
	TotalShortLiability  decimal.Decimal `json:"totalShortLiability"`
	GrossExposure        decimal.Decimal `json:"grossExposure"`
	EquityNoCash         decimal.Decimal `json:"equityNoCash"`
	UnrealizedPLLong     decimal.Decimal `json:"unrealizedPLLong"`
	UnrealizedPLShort    decimal.Decimal `json:"unrealizedPLShort"`
	UnrealizedPLNet      decimal.Decimal `json:"unrealizedPLNet"`
}

type DividendEntry struct {
	Ticker         string          `json:"ticker"`
	Shares         decimal.Decimal `json:"shares"`
	AmountPerShare decimal.Decimal `json:"amountPerShare"`
	Amount         decimal.Decimal `json:"amount"`
}

// DailySnapshot is one user's ledger entry for one trading-calendar date
type DailySnapshot struct {
	Version        int                       `json:"version"`
	Date           string                    `json:"date"`
	LongPositions  map[string]*LongPosition  `json:"longPositions"`
	ShortPositions map[string]*ShortPosition `json:"shortPositions"`
	Totals         Totals                    `json:"totals"`

	CumulativeTrades      int             `json:"cumulativeTrades"`
	CumulativeInvested    decimal.Decimal `json:"cumulativeInvested"`
	CumulativeRealizedPL  decimal.Decimal `json:"cumulativeRealizedPL"`
	TotalDividendReceived decimal.Decimal `json:"totalDividendReceived"`
	Dividends             []DividendEntry `json:"dividends"`

	// legacy aggregates, kept in sync with the fields above so
	// older readers of the collection keep working
	TotalValue     decimal.Decimal  `json:"totalValue"`
	TotalCostBasis decimal.Decimal  `json:"totalCostBasis"`
	UnrealizedPL   decimal.Decimal  `json:"unrealizedPL"`
	TotalPL        *decimal.Decimal `json:"totalPL,omitempty"`
	// P/L a v1 document stored under one of its older names
	LegacyPL *decimal.Decimal `json:"legacyPL,omitempty"`

	// Live marks the ephemeral intraday "today" document
	Live       bool       `json:"live,omitempty"`
	ComputedAt *time.Time `json:"computedAt,omitempty"`
}

func NewEmptySnapshot(date string) *DailySnapshot {
	return &DailySnapshot{
		Version:        SnapshotVersion,
		Date:           date,
		LongPositions:  map[string]*LongPosition{},
		ShortPositions: map[string]*ShortPosition{},
		Dividends:      []DividendEntry{},
	}
}

func (s DailySnapshot) DeepCopy() *DailySnapshot {
	out := s
	out.LongPositions = make(map[string]*LongPosition, len(s.LongPositions))
	for ticker, p := range s.LongPositions {
		out.LongPositions[ticker] = p.DeepCopy()
	}
	out.ShortPositions = make(map[string]*ShortPosition, len(s.ShortPositions))
	for ticker, p := range s.ShortPositions {
		out.ShortPositions[ticker] = p.DeepCopy()
	}
	out.Dividends = make([]DividendEntry, len(s.Dividends))
	copy(out.Dividends, s.Dividends)
	if s.TotalPL != nil {
		pl := *s.TotalPL
		out.TotalPL = &pl
	}
	if s.LegacyPL != nil {
		pl := *s.LegacyPL
		out.LegacyPL = &pl
	}
	if s.ComputedAt != nil {
		t := *s.ComputedAt
		out.ComputedAt = &t
	}
	return &out
}

// HeldTickers lists every long and short ticker, sorted
func (s DailySnapshot) HeldTickers() []string {
	set := map[string]struct{}{}
	for t := range s.LongPositions {
		set[t] = struct{}{}
	}
	for t := range s.ShortPositions {
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s DailySnapshot) LongShares() map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for t, p := range s.LongPositions {
		out[t] = p.Shares
	}
	return out
}

func (s DailySnapshot) DividendAccrual() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.Dividends {
		total = total.Add(d.Amount)
	}
	return total
}
