package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
)

// older documents stored P/L under any of these, in preference order
var legacyPLFields = []string{"totalPnL", "netPL", "pl", "pnl"}

// v1 documents keep one flat positions map
type v1Position struct {
	Shares       decimal.Decimal  `json:"shares"`
	AvgPrice     decimal.Decimal  `json:"avgPrice"`
	CostBasis    *decimal.Decimal `json:"costBasis"`
	Price        decimal.Decimal  `json:"price"`
	CurrentPrice decimal.Decimal  `json:"currentPrice"`
	Lots         []domain.Lot     `json:"lots"`
	Type         string           `json:"type"`
	Direction    string           `json:"direction"`
}

type v1Snapshot struct {
	Date                  string                 `json:"date"`
	Positions             map[string]v1Position  `json:"positions"`
	CumulativeTrades      int                    `json:"cumulativeTrades"`
	CumulativeInvested    decimal.Decimal        `json:"cumulativeInvested"`
	CumulativeRealizedPL  decimal.Decimal        `json:"cumulativeRealizedPL"`
	TotalDividendReceived decimal.Decimal        `json:"totalDividendReceived"`
	Dividends             []domain.DividendEntry `json:"dividends"`
	TotalPL               *decimal.Decimal       `json:"totalPL"`
}

// NormalizeSnapshot maps any stored snapshot shape into the v2
// representation. nothing past this function looks at the shape
func NormalizeSnapshot(key string, data []byte) (*domain.DailySnapshot, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}

	legacyPL, err := findLegacyPL(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}

	_, hasLong := fields["longPositions"]
	_, hasShort := fields["shortPositions"]
	_, hasTotals := fields["totals"]
	var snapshot *domain.DailySnapshot
	if hasLong || hasShort || hasTotals {
		snapshot = &domain.DailySnapshot{}
		if err := json.Unmarshal(data, snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
		}
		if snapshot.LongPositions == nil {
			snapshot.LongPositions = map[string]*domain.LongPosition{}
		}
		if snapshot.ShortPositions == nil {
			snapshot.ShortPositions = map[string]*domain.ShortPosition{}
		}
		if snapshot.Dividends == nil {
			snapshot.Dividends = []domain.DividendEntry{}
		}
	} else {
		snapshot, err = normalizeV1(data)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize v1 snapshot %s: %w", key, err)
		}
	}

	if snapshot.Date == "" {
		snapshot.Date = key
	}
	if snapshot.LegacyPL == nil {
		snapshot.LegacyPL = legacyPL
	}
	snapshot.Version = domain.SnapshotVersion
	return snapshot, nil
}

func findLegacyPL(fields map[string]json.RawMessage) (*decimal.Decimal, error) {
	for _, name := range legacyPLFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			continue
		}
		d := decimal.Decimal{}
		if err := d.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		return &d, nil
	}
	return nil, nil
}

func normalizeV1(data []byte) (*domain.DailySnapshot, error) {
	v1 := v1Snapshot{}
	if err := json.Unmarshal(data, &v1); err != nil {
		return nil, err
	}

	snapshot := domain.NewEmptySnapshot(v1.Date)
	snapshot.CumulativeTrades = v1.CumulativeTrades
	snapshot.CumulativeInvested = v1.CumulativeInvested
	snapshot.CumulativeRealizedPL = v1.CumulativeRealizedPL
	snapshot.TotalDividendReceived = v1.TotalDividendReceived
	if v1.Dividends != nil {
		snapshot.Dividends = v1.Dividends
	}

	prices := map[string]decimal.Decimal{}
	for ticker, p := range v1.Positions {
		price := p.CurrentPrice
		if price.IsZero() {
			price = p.Price
		}
		prices[ticker] = price

		isShort := strings.EqualFold(p.Type, "short") ||
			strings.EqualFold(p.Direction, "short") ||
			p.Shares.IsNegative()
		if isShort {
			snapshot.ShortPositions[ticker] = &domain.ShortPosition{
				Ticker:        ticker,
				Shares:        p.Shares.Abs(),
				AvgShortPrice: p.AvgPrice,
			}
			continue
		}

		lots := []domain.Lot{}
		for _, l := range p.Lots {
			if l.Shares.IsPositive() {
				lots = append(lots, l)
			}
		}
		if len(lots) == 0 && p.Shares.IsPositive() {
			lotPrice := p.AvgPrice
			if lotPrice.IsZero() && p.CostBasis != nil {
				lotPrice = p.CostBasis.Div(p.Shares)
			}
			lots = append(lots, domain.Lot{Shares: p.Shares, Price: lotPrice})
		}
		if len(lots) == 0 {
			continue
		}
		snapshot.LongPositions[ticker] = &domain.LongPosition{
			Ticker: ticker,
			Lots:   lots,
		}
	}

	calculator.Revalue(snapshot, prices)
	// a v1 totalPL is what the user saw; keep it rather than the
	// recomputed value, which may be missing realized history
	snapshot.TotalPL = v1.TotalPL
	return snapshot, nil
}
