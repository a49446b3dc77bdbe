package calculator

import (
	"fmt"
	"math/rand"
	"testing"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValuateLong(t *testing.T) {
	v := ValuateLong([]domain.Lot{lot(10, 100, ""), lot(5, 110, "")}, decimal.NewFromInt(120))
	requireDecimal(t, "15", v.Shares)
	requireDecimal(t, "1550", v.CostBasis)
	requireDecimal(t, "1800", v.MarketValue)
	requireDecimal(t, "250", v.UnrealizedPL)
}

func TestValuateShort(t *testing.T) {
	t.Run("price drop is a gain", func(t *testing.T) {
		v := ValuateShort(decimal.NewFromInt(10), decimal.NewFromInt(50), decimal.NewFromInt(40))
		requireDecimal(t, "400", v.Liability)
		requireDecimal(t, "100", v.UnrealizedPL)
	})
	t.Run("price rise is a loss", func(t *testing.T) {
		v := ValuateShort(decimal.NewFromInt(10), decimal.NewFromInt(50), decimal.NewFromInt(55))
		requireDecimal(t, "-50", v.UnrealizedPL)
	})
}

func TestOpenShort(t *testing.T) {
	p := &domain.ShortPosition{Ticker: "TSLA"}
	OpenShort(p, decimal.NewFromInt(10), decimal.NewFromInt(200))
	OpenShort(p, decimal.NewFromInt(30), decimal.NewFromInt(100))
	requireDecimal(t, "40", p.Shares)
	requireDecimal(t, "125", p.AvgShortPrice)
}

func TestRevalue(t *testing.T) {
	t.Run("missing price values at zero", func(t *testing.T) {
		s := domain.NewEmptySnapshot("2024-01-02")
		s.LongPositions["AAPL"] = &domain.LongPosition{Ticker: "AAPL", Lots: []domain.Lot{lot(10, 100, "")}}
		s.ShortPositions["XYZ"] = &domain.ShortPosition{Ticker: "XYZ", Shares: decimal.NewFromInt(2), AvgShortPrice: decimal.NewFromInt(10)}

		missing := Revalue(s, map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(8)})
		require.Equal(t, []string{"AAPL"}, missing)

		aapl := s.LongPositions["AAPL"]
		require.True(t, aapl.PriceMissing)
		requireDecimal(t, "0", aapl.Price)
		requireDecimal(t, "0", aapl.MarketValue)
		requireDecimal(t, "0", aapl.UnrealizedPL)
		requireDecimal(t, "1000", aapl.CostBasis)
		requireDecimal(t, "4", s.ShortPositions["XYZ"].UnrealizedPL)
	})

	t.Run("zero price counts as missing", func(t *testing.T) {
		s := domain.NewEmptySnapshot("2024-01-02")
		s.LongPositions["AAPL"] = &domain.LongPosition{Ticker: "AAPL", Lots: []domain.Lot{lot(1, 1, "")}}
		missing := Revalue(s, map[string]decimal.Decimal{"AAPL": decimal.Zero})
		require.Equal(t, []string{"AAPL"}, missing)
	})

	t.Run("totals stay additive", func(t *testing.T) {
		r := rand.New(rand.NewSource(42))
		for i := 0; i < 200; i++ {
			s := domain.NewEmptySnapshot("2024-01-02")
			prices := map[string]decimal.Decimal{}
			for j := 0; j < r.Intn(6); j++ {
				ticker := fmt.Sprintf("L%d", j)
				lots := []domain.Lot{}
				for k := 0; k <= r.Intn(3); k++ {
					lots = append(lots, lot(int64(r.Intn(100)+1), int64(r.Intn(500)), ""))
				}
				s.LongPositions[ticker] = &domain.LongPosition{Ticker: ticker, Lots: lots}
				prices[ticker] = decimal.NewFromFloat(r.Float64() * 500).Round(2)
			}
			for j := 0; j < r.Intn(4); j++ {
				ticker := fmt.Sprintf("S%d", j)
				s.ShortPositions[ticker] = &domain.ShortPosition{
					Ticker:        ticker,
					Shares:        decimal.NewFromInt(int64(r.Intn(50) + 1)),
					AvgShortPrice: decimal.NewFromFloat(r.Float64() * 300).Round(2),
				}
				prices[ticker] = decimal.NewFromFloat(r.Float64() * 300).Round(2)
			}

			Revalue(s, prices)
			totals := s.Totals
			require.True(t, totals.UnrealizedPLNet.Equal(totals.UnrealizedPLLong.Add(totals.UnrealizedPLShort)))
			require.True(t, totals.GrossExposure.Equal(totals.TotalLongMarketValue.Add(totals.TotalShortLiability)))
			require.True(t, totals.EquityNoCash.Equal(totals.TotalLongMarketValue.Sub(totals.TotalShortLiability)))

			sumMarketValue := decimal.Zero
			for _, p := range s.LongPositions {
				sumMarketValue = sumMarketValue.Add(p.MarketValue)
			}
			require.True(t, totals.TotalLongMarketValue.Equal(sumMarketValue))
			require.True(t, s.TotalPL.Equal(s.CumulativeRealizedPL.Add(totals.UnrealizedPLNet).Add(s.TotalDividendReceived)))
		}
	})
}
