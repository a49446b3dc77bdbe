package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"tradejournal/internal/util"

	"github.com/stretchr/testify/require"
)

// hits the real market data api
func initializeAlpacaRepository() (AlpacaRepository, error) {
	secretsFile := "../../secrets-dev.json"
	f, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open secrets-dev.json: %w", err)
	}

	s := util.Secrets{}
	err = json.Unmarshal(f, &s)
	if err != nil {
		return nil, err
	}

	return NewAlpacaRepository(s.Alpaca.ApiKey, s.Alpaca.ApiSecret, s.Alpaca.Endpoint), nil
}

func Test_alpacaRepositoryHandler_live(t *testing.T) {
	if os.Getenv("TRADEJOURNAL_LIVE_ALPACA") == "" {
		t.Skip()
	}

	handler, err := initializeAlpacaRepository()
	require.NoError(t, err)
	ctx := context.Background()

	prices, err := handler.GetLatestPrices(ctx, []string{"AAPL", "KO"})
	require.NoError(t, err)
	for symbol, price := range prices {
		require.True(t, price.IsPositive(), symbol)
	}

	dividends, err := handler.GetCashDividends(ctx, []string{"KO"}, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	// KO pays quarterly
	require.NotEmpty(t, dividends["KO"])
}
