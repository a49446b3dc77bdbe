package repository

import (
	"context"
	"testing"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSnapshot(t *testing.T) {
	t.Run("v1 flat positions", func(t *testing.T) {
		raw := `{
			"date": "2023-05-01",
			"positions": {
				"AAPL": {"shares": 10, "avgPrice": 100, "currentPrice": 110},
				"TSLA": {"shares": -5, "avgPrice": 200, "price": 180},
				"GONE": {"shares": 0, "avgPrice": 1}
			},
			"cumulativeRealizedPL": 12,
			"totalPnL": 250
		}`
		s, err := NormalizeSnapshot("2023-05-01", []byte(raw))
		require.NoError(t, err)
		require.Equal(t, domain.SnapshotVersion, s.Version)

		aapl := s.LongPositions["AAPL"]
		require.NotNil(t, aapl)
		require.True(t, aapl.MarketValue.Equal(decimal.NewFromInt(1100)))
		require.True(t, aapl.UnrealizedPL.Equal(decimal.NewFromInt(100)))
		require.Len(t, aapl.Lots, 1)

		tsla := s.ShortPositions["TSLA"]
		require.NotNil(t, tsla)
		require.True(t, tsla.Shares.Equal(decimal.NewFromInt(5)))
		require.True(t, tsla.UnrealizedPL.Equal(decimal.NewFromInt(100)))

		require.NotContains(t, s.LongPositions, "GONE")
		require.True(t, s.Totals.UnrealizedPLNet.Equal(decimal.NewFromInt(200)))
		require.True(t, s.Totals.EquityNoCash.Equal(decimal.NewFromInt(200)))
		require.Nil(t, s.TotalPL)
		require.True(t, s.LegacyPL.Equal(decimal.NewFromInt(250)))
	})

	t.Run("v1 lots", func(t *testing.T) {
		raw := `{"positions": {"MSFT": {"shares": 3, "price": 10, "lots": [{"shares": 1, "price": 5}, {"shares": 2, "price": 8}]}}}`
		s, err := NormalizeSnapshot("2023-05-02", []byte(raw))
		require.NoError(t, err)
		require.Equal(t, "2023-05-02", s.Date)
		require.True(t, s.LongPositions["MSFT"].CostBasis.Equal(decimal.NewFromInt(21)))
	})

	t.Run("v2 passes through", func(t *testing.T) {
		in := domain.NewEmptySnapshot("2024-01-01")
		in.LongPositions["AAPL"] = &domain.LongPosition{Ticker: "AAPL", Shares: decimal.NewFromInt(1)}
		pl := decimal.NewFromInt(3)
		in.TotalPL = &pl

		store := NewMemoryDocumentRepository()
		repo := NewSnapshotRepository(store)
		require.NoError(t, repo.Put(context.Background(), "u", in))

		out, err := repo.Get(context.Background(), "u", "2024-01-01")
		require.NoError(t, err)
		require.True(t, out.TotalPL.Equal(pl))
		require.True(t, out.LongPositions["AAPL"].Shares.Equal(decimal.NewFromInt(1)))
		require.NotNil(t, out.ShortPositions)
	})

	t.Run("v2 with a legacy pl name", func(t *testing.T) {
		s, err := NormalizeSnapshot("2024-01-01", []byte(`{"version": 2, "longPositions": {}, "netPL": 9}`))
		require.NoError(t, err)
		require.True(t, s.LegacyPL.Equal(decimal.NewFromInt(9)))
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := NormalizeSnapshot("2024-01-01", []byte(`[1,2]`))
		require.Error(t, err)
	})
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(NewMemoryDocumentRepository())
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-05"} {
		require.NoError(t, repo.Put(ctx, "u", domain.NewEmptySnapshot(date)))
	}

	t.Run("latest before is strict", func(t *testing.T) {
		s, err := repo.GetLatestBefore(ctx, "u", "2024-01-05")
		require.NoError(t, err)
		require.Equal(t, "2024-01-02", s.Date)

		s, err = repo.GetLatestBefore(ctx, "u", "2024-01-01")
		require.NoError(t, err)
		require.Nil(t, s)
	})

	t.Run("list range", func(t *testing.T) {
		out, err := repo.List(ctx, "u", "2024-01-02", "")
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, "2024-01-05", out[1].Date)
	})

	t.Run("rejects bad dates", func(t *testing.T) {
		require.Error(t, repo.Put(ctx, "u", domain.NewEmptySnapshot("01/02/2024")))
	})
}
