package calculator

import (
	"testing"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func buyDelta(ticker string, shares, price int64, date string) domain.TradeDelta {
	return domain.TradeDelta{
		Ticker:    ticker,
		Action:    domain.TradeActionEntry,
		Direction: domain.DirectionLong,
		Shares:    decimal.NewFromInt(shares),
		Price:     decimal.NewFromInt(price),
		Date:      date,
	}
}

func prices(kv ...interface{}) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = decimal.NewFromInt(int64(kv[i+1].(int)))
	}
	return out
}

func TestBuildSnapshot(t *testing.T) {
	t.Run("end to end buy then exit on the last day", func(t *testing.T) {
		day1 := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{buyDelta("AAPL", 10, 100, "2024-01-01")},
			Prices: prices("AAPL", 100),
		})
		day2 := BuildSnapshot(BuildInput{
			Date:     "2024-01-02",
			Previous: day1.Snapshot,
			Prices:   prices("AAPL", 105),
		})
		day3 := BuildSnapshot(BuildInput{
			Date:     "2024-01-03",
			Previous: day2.Snapshot,
			Prices:   prices("AAPL", 110),
		})

		for i, r := range []BuildResult{day1, day2, day3} {
			require.Empty(t, r.MissingPrices)
			p := r.Snapshot.LongPositions["AAPL"]
			requireDecimal(t, "10", p.Shares)
			requireDecimal(t, "1000", p.CostBasis)
			requireDecimal(t, []string{"1000", "1050", "1100"}[i], p.MarketValue)
			requireDecimal(t, []string{"0", "50", "100"}[i], p.UnrealizedPL)
			require.Equal(t, 1, r.Snapshot.CumulativeTrades)
			requireDecimal(t, "1000", r.Snapshot.CumulativeInvested)
		}

		amendment := AmendLongExit(day3.Snapshot, "AAPL", decimal.NewFromInt(10))
		require.True(t, amendment.Deleted)
		requireDecimal(t, "1000", amendment.RemovedCost)
		require.NotContains(t, day3.Snapshot.LongPositions, "AAPL")
		requireDecimal(t, "0", day3.Snapshot.Totals.TotalLongMarketValue)
		requireDecimal(t, "0", day3.Snapshot.Totals.UnrealizedPLNet)

		// earlier days are separate copies
		requireDecimal(t, "1050", day2.Snapshot.LongPositions["AAPL"].MarketValue)
		requireDecimal(t, "1000", day1.Snapshot.LongPositions["AAPL"].MarketValue)
	})

	t.Run("does not mutate the previous snapshot", func(t *testing.T) {
		prev := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{buyDelta("AAPL", 1, 100, "2024-01-01")},
			Prices: prices("AAPL", 100),
		}).Snapshot
		BuildSnapshot(BuildInput{
			Date:     "2024-01-02",
			Previous: prev,
			Deltas:   []domain.TradeDelta{buyDelta("AAPL", 1, 200, "2024-01-02")},
			Prices:   prices("AAPL", 200),
		})
		requireDecimal(t, "1", prev.LongPositions["AAPL"].Shares)
		require.Len(t, prev.LongPositions["AAPL"].Lots, 1)
	})

	t.Run("missing price", func(t *testing.T) {
		r := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{buyDelta("ZZZZ", 3, 10, "2024-01-01")},
			Prices: map[string]decimal.Decimal{},
		})
		require.Equal(t, []string{"ZZZZ"}, r.MissingPrices)
		p := r.Snapshot.LongPositions["ZZZZ"]
		requireDecimal(t, "0", p.Price)
		requireDecimal(t, "0", p.MarketValue)
		requireDecimal(t, "0", p.UnrealizedPL)
		requireDecimal(t, "30", p.CostBasis)
	})

	t.Run("dividends accumulate on the previous total", func(t *testing.T) {
		prev := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{buyDelta("KO", 6, 60, "2024-01-01")},
			Prices: prices("KO", 60),
		}).Snapshot
		prev.TotalDividendReceived = decimal.NewFromInt(7)
		prev.Dividends = []domain.DividendEntry{{Ticker: "OLD", Amount: decimal.NewFromInt(7)}}

		r := BuildSnapshot(BuildInput{
			Date:     "2024-01-02",
			Previous: prev,
			// bought on the ex-date, so 10 shares are credited
			Deltas:        []domain.TradeDelta{buyDelta("KO", 4, 60, "2024-01-02")},
			Prices:        prices("KO", 60, "PEP", 100),
			DividendRates: map[string]decimal.Decimal{"KO": dec("0.5"), "PEP": dec("1")},
		})
		requireDecimal(t, "12", r.Snapshot.TotalDividendReceived)
		require.Len(t, r.Snapshot.Dividends, 1)
		requireDecimal(t, "10", r.Snapshot.Dividends[0].Shares)
		requireDecimal(t, "5", r.Snapshot.Dividends[0].Amount)
		requireDecimal(t, "12", *r.Snapshot.TotalPL)
	})

	t.Run("same day round trip", func(t *testing.T) {
		sell := buyDelta("AAPL", 4, 120, "2024-01-01")
		sell.Action = domain.TradeActionExit
		r := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{sell, buyDelta("AAPL", 10, 100, "2024-01-01")},
			Prices: prices("AAPL", 120),
		})
		requireDecimal(t, "80", r.RealizedPL)
		requireDecimal(t, "80", r.Snapshot.CumulativeRealizedPL)
		requireDecimal(t, "6", r.Snapshot.LongPositions["AAPL"].Shares)
		require.Equal(t, 2, r.Snapshot.CumulativeTrades)
	})

	t.Run("short open and cover", func(t *testing.T) {
		short := domain.TradeDelta{
			Ticker:    "TSLA",
			Action:    domain.TradeActionEntry,
			Direction: domain.DirectionShort,
			Shares:    decimal.NewFromInt(10),
			Price:     decimal.NewFromInt(200),
		}
		r := BuildSnapshot(BuildInput{
			Date:   "2024-01-01",
			Deltas: []domain.TradeDelta{short},
			Prices: prices("TSLA", 180),
		})
		requireDecimal(t, "1800", r.Snapshot.Totals.TotalShortLiability)
		requireDecimal(t, "200", r.Snapshot.Totals.UnrealizedPLShort)
		requireDecimal(t, "-1800", r.Snapshot.Totals.EquityNoCash)

		cover := short
		cover.Action = domain.TradeActionExit
		cover.Price = decimal.NewFromInt(150)
		r = BuildSnapshot(BuildInput{
			Date:     "2024-01-02",
			Previous: r.Snapshot,
			Deltas:   []domain.TradeDelta{cover},
			Prices:   prices("TSLA", 150),
		})
		requireDecimal(t, "500", r.RealizedPL)
		require.Empty(t, r.Snapshot.ShortPositions)
	})
}

func TestAmendLongExit(t *testing.T) {
	t.Run("scales market value and uses fifo cost", func(t *testing.T) {
		s := domain.NewEmptySnapshot("2024-03-01")
		s.LongPositions["AAPL"] = &domain.LongPosition{
			Ticker: "AAPL",
			Lots:   []domain.Lot{lot(6, 70, ""), lot(4, 95, "")},
		}
		Revalue(s, prices("AAPL", 100))
		requireDecimal(t, "1000", s.LongPositions["AAPL"].MarketValue)
		requireDecimal(t, "800", s.LongPositions["AAPL"].CostBasis)

		amendment := AmendLongExit(s, "AAPL", decimal.NewFromInt(4))
		p := s.LongPositions["AAPL"]
		requireDecimal(t, "280", amendment.RemovedCost)
		requireDecimal(t, "6", p.Shares)
		requireDecimal(t, "600", p.MarketValue)
		requireDecimal(t, "520", p.CostBasis)
		requireDecimal(t, "80", p.UnrealizedPL)
		requireDecimal(t, "600", s.Totals.TotalLongMarketValue)
		requireDecimal(t, "80", s.Totals.UnrealizedPLLong)
		requireDecimal(t, "80", s.Totals.UnrealizedPLNet)
		requireDecimal(t, "520", s.TotalCostBasis)
	})

	t.Run("leaves other positions alone", func(t *testing.T) {
		s := domain.NewEmptySnapshot("2024-03-01")
		s.LongPositions["AAPL"] = &domain.LongPosition{Ticker: "AAPL", Lots: []domain.Lot{lot(2, 10, "")}}
		s.LongPositions["MSFT"] = &domain.LongPosition{Ticker: "MSFT", Lots: []domain.Lot{lot(1, 300, "")}}
		Revalue(s, prices("AAPL", 20, "MSFT", 310))

		AmendLongExit(s, "AAPL", decimal.NewFromInt(1))
		requireDecimal(t, "330", s.Totals.TotalLongMarketValue)
		requireDecimal(t, "20", s.Totals.UnrealizedPLLong)
		require.True(t, ComputeTotals(s).TotalLongMarketValue.Equal(s.Totals.TotalLongMarketValue))
	})

	t.Run("absent position is a no-op", func(t *testing.T) {
		s := domain.NewEmptySnapshot("2024-03-01")
		require.False(t, AmendLongExit(s, "AAPL", decimal.NewFromInt(1)).Found)
	})
}

func TestAmendShortCover(t *testing.T) {
	s := domain.NewEmptySnapshot("2024-03-01")
	s.ShortPositions["TSLA"] = &domain.ShortPosition{
		Ticker:        "TSLA",
		Shares:        decimal.NewFromInt(10),
		AvgShortPrice: decimal.NewFromInt(200),
	}
	Revalue(s, prices("TSLA", 180))

	AmendShortCover(s, "TSLA", decimal.NewFromInt(4))
	p := s.ShortPositions["TSLA"]
	requireDecimal(t, "6", p.Shares)
	requireDecimal(t, "200", p.AvgShortPrice)
	requireDecimal(t, "1080", p.Liability)
	requireDecimal(t, "120", p.UnrealizedPL)
	requireDecimal(t, "1080", s.Totals.TotalShortLiability)
	requireDecimal(t, "-1080", s.Totals.EquityNoCash)

	amendment := AmendShortCover(s, "TSLA", decimal.NewFromInt(6))
	require.True(t, amendment.Deleted)
	requireDecimal(t, "0", s.Totals.TotalShortLiability)
	requireDecimal(t, "0", s.Totals.UnrealizedPLShort)
}
