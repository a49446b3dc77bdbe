package l1_service

import (
	"context"
	"errors"
	"testing"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func heldSnapshot(date string, shares int64, totalDividends string) *domain.DailySnapshot {
	s := domain.NewEmptySnapshot(date)
	s.LongPositions["KO"] = &domain.LongPosition{
		Ticker: "KO",
		Lots:   []domain.Lot{{Shares: decimal.NewFromInt(shares), Price: decimal.NewFromInt(60)}},
		Shares: decimal.NewFromInt(shares),
	}
	calculator.Revalue(s, map[string]decimal.Decimal{"KO": decimal.NewFromInt(60)})
	s.TotalDividendReceived = decimal.RequireFromString(totalDividends)
	calculator.SyncLegacyAggregates(s)
	return s
}

func Test_dividendServiceHandler_Reconcile(t *testing.T) {
	ctx := context.Background()
	rates := map[string]decimal.Decimal{"KO": decimal.RequireFromString("0.5")}

	t.Run("converges and propagates", func(t *testing.T) {
		l := newTestLedger(t)
		h := l.service.DividendService

		require.NoError(t, l.snapshots.Put(ctx, "u1", heldSnapshot("2024-01-02", 10, "1")))
		require.NoError(t, l.snapshots.Put(ctx, "u1", heldSnapshot("2024-01-03", 10, "1")))
		require.NoError(t, l.snapshots.Put(ctx, "u1", heldSnapshot("2024-01-05", 10, "1")))

		shares := map[string]decimal.Decimal{"KO": decimal.NewFromInt(10)}
		result, err := h.Reconcile(ctx, "u1", "2024-01-02", shares, rates, true)
		require.NoError(t, err)
		require.True(t, result.Delta.Equal(decimal.NewFromInt(5)))
		require.True(t, result.LedgerChanged)

		for _, date := range []string{"2024-01-02", "2024-01-03", "2024-01-05"} {
			s, err := l.snapshots.Get(ctx, "u1", date)
			require.NoError(t, err)
			require.True(t, s.TotalDividendReceived.Equal(decimal.NewFromInt(6)), date)
			require.True(t, s.TotalPL.Equal(decimal.NewFromInt(6)), date)
		}

		// running it again changes nothing
		result, err = h.Reconcile(ctx, "u1", "2024-01-02", shares, rates, true)
		require.NoError(t, err)
		require.True(t, result.Delta.IsZero())
		require.False(t, result.LedgerChanged)
		s, err := l.snapshots.Get(ctx, "u1", "2024-01-05")
		require.NoError(t, err)
		require.True(t, s.TotalDividendReceived.Equal(decimal.NewFromInt(6)))

		// the holding is corrected away, the credit is taken back and the
		// ledger doc goes with it
		result, err = h.Reconcile(ctx, "u1", "2024-01-02", map[string]decimal.Decimal{}, rates, true)
		require.NoError(t, err)
		require.True(t, result.Delta.Equal(decimal.NewFromInt(-5)))
		history, err := l.dividends.Get(ctx, "u1", "2024-01-02")
		require.NoError(t, err)
		require.Nil(t, history)
		s, err = l.snapshots.Get(ctx, "u1", "2024-01-05")
		require.NoError(t, err)
		require.True(t, s.TotalDividendReceived.Equal(decimal.NewFromInt(1)))
	})

	t.Run("ledger only", func(t *testing.T) {
		l := newTestLedger(t)
		h := l.service.DividendService
		require.NoError(t, l.snapshots.Put(ctx, "u1", heldSnapshot("2024-01-02", 10, "0")))

		result, err := h.Reconcile(ctx, "u1", "2024-01-02", map[string]decimal.Decimal{"KO": decimal.NewFromInt(4)}, rates, false)
		require.NoError(t, err)
		require.True(t, result.LedgerChanged)
		require.Nil(t, result.Snapshot)

		history, err := l.dividends.Get(ctx, "u1", "2024-01-02")
		require.NoError(t, err)
		require.True(t, history.Total.Equal(decimal.NewFromInt(2)))

		s, err := l.snapshots.Get(ctx, "u1", "2024-01-02")
		require.NoError(t, err)
		require.True(t, s.TotalDividendReceived.IsZero())
	})

	t.Run("oracle failure leaves credits alone", func(t *testing.T) {
		l := newTestLedger(t)
		l.divOracle.EXPECT().
			GetDividends(gomock.Any(), []string{"KO"}, "2024-01-01", "2024-01-05").
			Return(nil, errors.New("timeout"))
		calendar := l.service.DividendService.LoadCalendar(ctx, []string{"KO"}, "2024-01-01", "2024-01-05")
		require.Empty(t, calendar.On("2024-01-02"))

		result, err := l.service.DividendService.Reconcile(ctx, "u1", "2024-01-02", map[string]decimal.Decimal{}, calendar.On("2024-01-02"), true)
		require.NoError(t, err)
		require.True(t, result.Delta.IsZero())
	})
}
