package l2_service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"tradejournal/internal/domain"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_liveSnapshotServiceHandler(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (testStack, LiveSnapshotService) {
		s := newTestStack(t, "2024-01-04", nil)
		s.priceOracle.EXPECT().GetPriceRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[string]map[string]decimal.Decimal{
				"AAPL": {"2024-01-03": decimal.NewFromInt(110)},
				"MSFT": {"2024-01-03": decimal.NewFromInt(300)},
			}, nil).AnyTimes()
		s.divOracle.EXPECT().GetDividends(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

		trades := l1_service.NewTradeService(s.positions)
		for _, e := range []domain.JournalEntry{
			entryOf(domain.TradeActionEntry, "AAPL", 10, 100, "2024-01-03"),
			entryOf(domain.TradeActionEntry, "MSFT", 1, 300, "2024-01-03"),
		} {
			e.BackfilledThrough = ""
			require.NoError(t, s.journal.Put(ctx, "u1", e))
			_, err := trades.ApplyToPositions(ctx, "u1", e.Delta(), false)
			require.NoError(t, err)
		}
		// bought this morning
		today := entryOf(domain.TradeActionEntry, "AAPL", 5, 120, "2024-01-04")
		today.BackfilledThrough = "2024-01-03"
		require.NoError(t, s.journal.Put(ctx, "u1", today))
		_, err := trades.ApplyToPositions(ctx, "u1", today.Delta(), false)
		require.NoError(t, err)

		live := NewLiveSnapshotService(
			repository.NewMemoryLiveSnapshotCache(),
			s.positions,
			s.realized,
			s.snapshotService,
			s.priceService,
		)
		return s, live
	}

	t.Run("values current positions at live prices", func(t *testing.T) {
		s, live := setup(t)
		// no quote for MSFT, yesterday's close stands in
		s.priceOracle.EXPECT().
			GetPrices(gomock.Any(), []string{"AAPL", "MSFT"}, "").
			Return(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(130)}, nil).
			Times(1)

		snapshot, err := live.Get(ctx, "u1")
		require.NoError(t, err)
		require.True(t, snapshot.Live)
		require.NotNil(t, snapshot.ComputedAt)
		require.Equal(t, "2024-01-04", snapshot.Date)
		requireDecimal(t, "15", snapshot.LongPositions["AAPL"].Shares)
		requireDecimal(t, "1950", snapshot.LongPositions["AAPL"].MarketValue)
		requireDecimal(t, "300", snapshot.LongPositions["MSFT"].MarketValue)
		require.Equal(t, 3, snapshot.CumulativeTrades)
		requireDecimal(t, "1900", snapshot.CumulativeInvested)
		// 1950 - 1600 on AAPL, flat MSFT
		requireDecimal(t, "350", *snapshot.TotalPL)

		persisted, err := s.snapshots.Get(ctx, "u1", "2024-01-04")
		require.NoError(t, err)
		require.True(t, persisted.Live)

		// memoized, the oracle is not asked again
		again, err := live.Get(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, snapshot.TotalPL.String(), again.TotalPL.String())
	})

	t.Run("invalidate forces a recompute", func(t *testing.T) {
		s, live := setup(t)
		s.priceOracle.EXPECT().GetPrices(gomock.Any(), gomock.Any(), "").
			Return(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(130), "MSFT": decimal.NewFromInt(310)}, nil).
			Times(2)

		_, err := live.Get(ctx, "u1")
		require.NoError(t, err)
		require.NoError(t, live.Invalidate(ctx, "u1"))

		persisted, err := s.snapshots.Get(ctx, "u1", "2024-01-04")
		require.NoError(t, err)
		require.Nil(t, persisted)

		snapshot, err := live.Get(ctx, "u1")
		require.NoError(t, err)
		requireDecimal(t, "310", snapshot.LongPositions["MSFT"].MarketValue)
	})

	t.Run("quote failure falls back to the last close", func(t *testing.T) {
		s, live := setup(t)
		s.priceOracle.EXPECT().GetPrices(gomock.Any(), gomock.Any(), "").
			Return(nil, errors.New("503"))

		snapshot, err := live.Refresh(ctx, "u1")
		require.NoError(t, err)
		requireDecimal(t, "1650", snapshot.LongPositions["AAPL"].MarketValue)
		require.False(t, snapshot.LongPositions["AAPL"].PriceMissing)
	})

	t.Run("concurrent reads share one computation", func(t *testing.T) {
		s, live := setup(t)
		s.priceOracle.EXPECT().GetPrices(gomock.Any(), gomock.Any(), "").
			Return(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(130), "MSFT": decimal.NewFromInt(310)}, nil).
			MinTimes(1)

		var wg sync.WaitGroup
		results := make([]*domain.DailySnapshot, 8)
		errs := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = live.Get(ctx, "u1")
			}(i)
		}
		wg.Wait()
		for i, r := range results {
			require.NoError(t, errs[i])
			requireDecimal(t, "2260", r.Totals.TotalLongMarketValue)
		}
	})
}
