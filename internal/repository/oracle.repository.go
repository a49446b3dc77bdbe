package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceOracle prices tickers. unknown tickers are absent from the
// result, never an error for the whole batch
type PriceOracle interface {
	// GetPrices returns closes on date, or live prices if date is ""
	GetPrices(ctx context.Context, tickers []string, date string) (map[string]decimal.Decimal, error)
	// GetPriceRange returns ticker -> trading date -> close
	GetPriceRange(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error)
}

type DividendOracle interface {
	// GetDividends returns ticker -> ex date -> amount per share
	GetDividends(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error)
}

// MarketDataOracle prices history from yahoo and live quotes
// and dividends from alpaca
type MarketDataOracle struct {
	YahooRepository  YahooRepository
	AlpacaRepository AlpacaRepository
}

func NewMarketDataOracle(yahooRepository YahooRepository, alpacaRepository AlpacaRepository) *MarketDataOracle {
	return &MarketDataOracle{
		YahooRepository:  yahooRepository,
		AlpacaRepository: alpacaRepository,
	}
}

func (h MarketDataOracle) GetPrices(ctx context.Context, tickers []string, date string) (map[string]decimal.Decimal, error) {
	if date == "" {
		return h.AlpacaRepository.GetLatestPrices(ctx, tickers)
	}
	closes, err := h.YahooRepository.GetCloses(ctx, tickers, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get closes on %s: %w", date, err)
	}
	out := map[string]decimal.Decimal{}
	for ticker, byDate := range closes {
		if price, ok := byDate[date]; ok {
			out[ticker] = price
		}
	}
	return out, nil
}

func (h MarketDataOracle) GetPriceRange(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	return h.YahooRepository.GetCloses(ctx, tickers, start, end)
}

func (h MarketDataOracle) GetDividends(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	return h.AlpacaRepository.GetCashDividends(ctx, tickers, start, end)
}
