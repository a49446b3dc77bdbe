package l1_service

import (
	"context"
	"testing"
	"time"
	"tradejournal/internal/domain"
	"tradejournal/internal/repository"
	mock_repository "tradejournal/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testLedger struct {
	store       repository.DocumentRepository
	snapshots   repository.SnapshotRepository
	journal     repository.JournalRepository
	refetch     repository.RefetchQueueRepository
	dividends   repository.DividendHistoryRepository
	priceOracle *mock_repository.MockPriceOracle
	divOracle   *mock_repository.MockDividendOracle
	service     snapshotServiceHandler
}

// noon in new york on 2024-01-06
var testNow = time.Date(2024, 1, 6, 17, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) testLedger {
	ctrl := gomock.NewController(t)
	store := repository.NewMemoryDocumentRepository()
	l := testLedger{
		store:       store,
		snapshots:   repository.NewSnapshotRepository(store),
		journal:     repository.NewJournalRepository(store),
		refetch:     repository.NewRefetchQueueRepository(store),
		dividends:   repository.NewDividendHistoryRepository(store),
		priceOracle: mock_repository.NewMockPriceOracle(ctrl),
		divOracle:   mock_repository.NewMockDividendOracle(ctrl),
	}
	l.service = snapshotServiceHandler{
		SnapshotRepository:     l.snapshots,
		JournalRepository:      l.journal,
		RefetchQueueRepository: l.refetch,
		PriceService:           NewPriceService(l.priceOracle),
		DividendService:        NewDividendService(l.divOracle, l.dividends, l.snapshots),
		now:                    func() time.Time { return testNow },
	}
	return l
}

func journalEntry(ticker string, shares, price int64, date string) domain.JournalEntry {
	return domain.JournalEntry{
		ID:            uuid.New(),
		Ticker:        ticker,
		Action:        domain.TradeActionEntry,
		Direction:     domain.DirectionLong,
		Shares:        decimal.NewFromInt(shares),
		Price:         decimal.NewFromInt(price),
		EffectiveDate: date,
	}
}

func Test_snapshotServiceHandler_EnsureRange(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesizes from the first trade", func(t *testing.T) {
		l := newTestLedger(t)
		require.Equal(t, "2024-01-06", l.service.Today())

		aapl := journalEntry("AAPL", 10, 100, "2024-01-02")
		msft := journalEntry("MSFT", 1, 300, "2024-01-03")
		require.NoError(t, l.journal.Put(ctx, "u1", aapl))
		require.NoError(t, l.journal.Put(ctx, "u1", msft))

		l.priceOracle.EXPECT().
			GetPriceRange(gomock.Any(), []string{"AAPL", "MSFT"}, "2023-12-26", "2024-01-05").
			Return(map[string]map[string]decimal.Decimal{
				"AAPL": {
					"2024-01-02": decimal.NewFromInt(100),
					"2024-01-03": decimal.NewFromInt(110),
					"2024-01-05": decimal.NewFromInt(120),
				},
			}, nil)
		l.divOracle.EXPECT().
			GetDividends(gomock.Any(), []string{"AAPL", "MSFT"}, "2023-12-31", "2024-01-05").
			Return(map[string]map[string]decimal.Decimal{
				"AAPL": {"2024-01-04": decimal.RequireFromString("0.25")},
			}, nil)

		snapshots, err := l.service.EnsureRange(ctx, "u1", "2024-01-01", "2024-01-10")
		require.NoError(t, err)
		require.Len(t, snapshots, 4)
		require.Equal(t, "2024-01-02", snapshots[0].Date)

		jan4 := snapshots[2]
		require.True(t, jan4.LongPositions["AAPL"].Price.Equal(decimal.NewFromInt(110)))
		require.True(t, jan4.TotalDividendReceived.Equal(decimal.RequireFromString("2.5")))
		require.True(t, jan4.LongPositions["MSFT"].PriceMissing)

		last := snapshots[3]
		require.Equal(t, 2, last.CumulativeTrades)
		require.True(t, last.CumulativeInvested.Equal(decimal.NewFromInt(1300)))
		require.True(t, last.LongPositions["AAPL"].MarketValue.Equal(decimal.NewFromInt(1200)))
		require.True(t, last.TotalDividendReceived.Equal(decimal.RequireFromString("2.5")))
		// 200 unrealized on AAPL, MSFT unpriced, plus the dividend
		require.True(t, last.TotalPL.Equal(decimal.RequireFromString("202.5")))

		history, err := l.dividends.Get(ctx, "u1", "2024-01-04")
		require.NoError(t, err)
		require.NotNil(t, history)
		require.True(t, history.Total.Equal(decimal.RequireFromString("2.5")))

		queued, err := l.refetch.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, queued, 3)

		entries, err := l.journal.List(ctx, "u1", "", "")
		require.NoError(t, err)
		for _, e := range entries {
			require.Equal(t, e.EffectiveDate, e.BackfilledThrough)
		}

		// second read is served from storage, the oracles are not called again
		again, err := l.service.EnsureRange(ctx, "u1", "2024-01-01", "2024-01-05")
		require.NoError(t, err)
		require.Len(t, again, 4)
		require.Equal(t, 2, again[3].CumulativeTrades)
	})

	t.Run("no trades means no snapshots", func(t *testing.T) {
		l := newTestLedger(t)
		snapshots, err := l.service.EnsureRange(ctx, "u1", "2024-01-01", "2024-01-05")
		require.NoError(t, err)
		require.Empty(t, snapshots)
	})

	t.Run("stale live document is rebuilt", func(t *testing.T) {
		l := newTestLedger(t)
		l.priceOracle.EXPECT().GetPriceRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[string]map[string]decimal.Decimal{
				"AAPL": {"2024-01-04": decimal.NewFromInt(100), "2024-01-05": decimal.NewFromInt(105)},
			}, nil)
		l.divOracle.EXPECT().GetDividends(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		seed := domain.NewEmptySnapshot("2024-01-04")
		seed.LongPositions["AAPL"] = &domain.LongPosition{
			Ticker: "AAPL",
			Lots:   []domain.Lot{{Shares: decimal.NewFromInt(2), Price: decimal.NewFromInt(90)}},
			Shares: decimal.NewFromInt(2),
		}
		require.NoError(t, l.snapshots.Put(ctx, "u1", seed))

		now := testNow
		live := seed.DeepCopy()
		live.Date = "2024-01-05"
		live.Live = true
		live.ComputedAt = &now
		require.NoError(t, l.snapshots.Put(ctx, "u1", live))

		stale, err := l.service.Get(ctx, "u1", "2024-01-05")
		require.NoError(t, err)
		require.Nil(t, stale)

		entry := journalEntry("AAPL", 1, 100, "2024-01-05")
		entry.BackfilledThrough = "2024-01-04"
		require.NoError(t, l.journal.Put(ctx, "u1", entry))

		s, err := l.service.GetOrSynthesize(ctx, "u1", "2024-01-05")
		require.NoError(t, err)
		require.False(t, s.Live)
		require.Nil(t, s.ComputedAt)
		require.True(t, s.LongPositions["AAPL"].Shares.Equal(decimal.NewFromInt(3)))
		require.True(t, s.LongPositions["AAPL"].MarketValue.Equal(decimal.NewFromInt(315)))
	})

	t.Run("today is never synthesized", func(t *testing.T) {
		l := newTestLedger(t)
		require.NoError(t, l.journal.Put(ctx, "u1", journalEntry("AAPL", 1, 100, "2024-01-06")))
		snapshots, err := l.service.EnsureRange(ctx, "u1", "2024-01-06", "2024-01-06")
		require.NoError(t, err)
		require.Empty(t, snapshots)
	})
}

func Test_snapshotServiceHandler_PendingEntries(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	done := journalEntry("AAPL", 1, 100, "2024-01-05")
	done.BackfilledThrough = "2024-01-05"
	pending := journalEntry("AAPL", 2, 100, "2024-01-05")
	pending.BackfilledThrough = "2024-01-04"
	skipped := journalEntry("MSFT", 2, 100, "2024-01-05")
	for _, e := range []domain.JournalEntry{done, pending, skipped} {
		require.NoError(t, l.journal.Put(ctx, "u1", e))
	}

	out, err := l.service.PendingEntries(ctx, "u1", "2024-01-05", &skipped.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, pending.ID, out[0].ID)

	require.NoError(t, l.service.MarkBackfilled(ctx, "u1", out, "2024-01-05"))
	out, err = l.service.PendingEntries(ctx, "u1", "2024-01-05", &skipped.ID)
	require.NoError(t, err)
	require.Empty(t, out)
}
