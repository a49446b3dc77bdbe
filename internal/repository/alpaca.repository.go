package repository

import (
	"context"
	"fmt"
	"tradejournal/internal/logger"
	"tradejournal/internal/util"

	"cloud.google.com/go/civil"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaRepository reads live quotes and cash dividends
type AlpacaRepository interface {
	// GetLatestPrices leaves out symbols with no usable quote
	GetLatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
	// GetCashDividends returns symbol -> ex date -> amount per share
	GetCashDividends(ctx context.Context, symbols []string, start, end string) (map[string]map[string]decimal.Decimal, error)
}

func NewAlpacaRepository(apiKey, apiSecret string, endpoint string) AlpacaRepository {
	mdClient := marketdata.NewClient(marketdata.ClientOpts{
		BaseURL:   endpoint,
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &alpacaRepositoryHandler{
		MdClient: mdClient,
	}
}

type alpacaRepositoryHandler struct {
	MdClient *marketdata.Client
}

func (h alpacaRepositoryHandler) GetLatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	log := logger.FromContext(ctx)
	out := map[string]decimal.Decimal{}
	if len(symbols) == 0 {
		return out, nil
	}

	results, err := h.MdClient.GetLatestQuotes(symbols, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quotes: %w", err)
	}
	for symbol, result := range results {
		price := decimal.NewFromFloat(result.BidPrice)
		if !price.IsPositive() {
			log.Warnf("got 0 bid price for %s, leaving it unpriced", symbol)
			continue
		}
		out[symbol] = price
	}

	return out, nil
}

func (h alpacaRepositoryHandler) GetCashDividends(ctx context.Context, symbols []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	out := map[string]map[string]decimal.Decimal{}
	if len(symbols) == 0 {
		return out, nil
	}
	startDate, err := util.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endDate, err := util.ParseDate(end)
	if err != nil {
		return nil, err
	}

	actions, err := h.MdClient.GetCorporateActions(marketdata.GetCorporateActionsRequest{
		Symbols: symbols,
		Types:   []string{"cash_dividend"},
		Start:   civil.DateOf(startDate),
		End:     civil.DateOf(endDate),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cash dividends: %w", err)
	}

	for _, d := range actions.CashDividends {
		exDate := d.ExDate.String()
		if _, ok := out[d.Symbol]; !ok {
			out[d.Symbol] = map[string]decimal.Decimal{}
		}
		out[d.Symbol][exDate] = out[d.Symbol][exDate].Add(decimal.NewFromFloat(d.Rate))
	}

	return out, nil
}
