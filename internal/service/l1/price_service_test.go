package l1_service

import (
	"context"
	"errors"
	"testing"
	mock_repository "tradejournal/internal/repository/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_priceServiceHandler_LoadPriceCache(t *testing.T) {
	t.Run("fills weekends from the last close", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		oracle := mock_repository.NewMockPriceOracle(ctrl)
		h := priceServiceHandler{PriceOracle: oracle}

		// 2024-01-05 is a friday
		oracle.EXPECT().
			GetPriceRange(gomock.Any(), []string{"AAPL", "MSFT"}, "2023-12-30", "2024-01-08").
			Return(map[string]map[string]decimal.Decimal{
				"AAPL": {
					"2024-01-05": decimal.NewFromInt(100),
					"2024-01-08": decimal.NewFromInt(101),
				},
			}, nil)

		cache, err := h.LoadPriceCache(context.Background(), []string{"MSFT", "AAPL", "AAPL"}, "2024-01-06", "2024-01-08")
		require.NoError(t, err)

		for _, date := range []string{"2024-01-06", "2024-01-07"} {
			price, ok := cache.Get("AAPL", date)
			require.True(t, ok)
			require.True(t, price.Equal(decimal.NewFromInt(100)))
		}
		price, ok := cache.Get("AAPL", "2024-01-08")
		require.True(t, ok)
		require.True(t, price.Equal(decimal.NewFromInt(101)))

		_, ok = cache.Get("MSFT", "2024-01-08")
		require.False(t, ok)
		require.Len(t, cache.PricesOn("2024-01-07"), 1)
	})

	t.Run("gives up after a week", func(t *testing.T) {
		cache := map[string]map[string]decimal.Decimal{
			"AAPL": {"2024-01-01": decimal.NewFromInt(1)},
		}
		fillPriceCacheGaps([]string{"2024-01-08", "2024-01-09"}, cache)
		_, ok := cache["AAPL"]["2024-01-08"]
		require.True(t, ok)
		_, ok = cache["AAPL"]["2024-01-09"]
		// filled from 01-08, which was itself filled
		require.True(t, ok)

		cache = map[string]map[string]decimal.Decimal{
			"AAPL": {"2024-01-01": decimal.NewFromInt(1)},
		}
		fillPriceCacheGaps([]string{"2024-01-09"}, cache)
		_, ok = cache["AAPL"]["2024-01-09"]
		require.False(t, ok)
	})

	t.Run("oracle failure is not fatal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		oracle := mock_repository.NewMockPriceOracle(ctrl)
		h := priceServiceHandler{PriceOracle: oracle}

		oracle.EXPECT().
			GetPriceRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("rate limited"))

		cache, err := h.LoadPriceCache(context.Background(), []string{"AAPL"}, "2024-01-06", "2024-01-08")
		require.NoError(t, err)
		_, ok := cache.Get("AAPL", "2024-01-06")
		require.False(t, ok)
	})
}
