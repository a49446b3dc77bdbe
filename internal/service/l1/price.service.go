package l1_service

import (
	"context"
	"fmt"
	"sort"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/repository"
	"tradejournal/internal/util"

	"github.com/shopspring/decimal"
)

/**

when i ask for a price on a date, it should already be loaded. the
cache is filled for a whole range in one oracle call per ticker

weekends and holidays use the most recent close within 7 days. past
that the ticker is unpriced for the day and the caller values it at 0

*/

const maxGapFillDays = 7

type PriceService interface {
	LoadPriceCache(ctx context.Context, tickers []string, start, end string) (*PriceCache, error)
	GetLivePrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type priceServiceHandler struct {
	PriceOracle repository.PriceOracle
}

func NewPriceService(priceOracle repository.PriceOracle) PriceService {
	return &priceServiceHandler{
		PriceOracle: priceOracle,
	}
}

type PriceCache struct {
	// ticker -> date -> close
	prices map[string]map[string]decimal.Decimal
}

func NewPriceCache(prices map[string]map[string]decimal.Decimal) *PriceCache {
	if prices == nil {
		prices = map[string]map[string]decimal.Decimal{}
	}
	return &PriceCache{
		prices: prices,
	}
}

// Get retrieves the price for a ticker on the given day
func (pc *PriceCache) Get(ticker, date string) (decimal.Decimal, bool) {
	if byDate, ok := pc.prices[ticker]; ok {
		if price, ok := byDate[date]; ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

// PricesOn returns every loaded ticker's price on date
func (pc *PriceCache) PricesOn(date string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for ticker, byDate := range pc.prices {
		if price, ok := byDate[date]; ok {
			out[ticker] = price
		}
	}
	return out
}

// LoadPriceCache is expected to populate results for all days in the
// range, even non-trading days. an oracle failure gives an empty cache
// so every position on the range is queued for repair instead
func (h priceServiceHandler) LoadPriceCache(ctx context.Context, tickers []string, start, end string) (*PriceCache, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)
	_, endSpan := profile.StartNewSpan("load price cache")
	defer endSpan()

	if len(tickers) == 0 || end < start {
		return NewPriceCache(nil), nil
	}

	bufferedStart, err := util.AddDays(start, -maxGapFillDays)
	if err != nil {
		return nil, err
	}

	prices, err := h.PriceOracle.GetPriceRange(ctx, dedupe(tickers), bufferedStart, end)
	if err != nil {
		log.Warnf("failed to load prices for %v between %s and %s: %v", tickers, start, end, err)
		return NewPriceCache(nil), nil
	}

	dates, err := util.DateRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build date range: %w", err)
	}
	fillPriceCacheGaps(dates, prices)

	return NewPriceCache(prices), nil
}

func (h priceServiceHandler) GetLivePrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	prices, err := h.PriceOracle.GetPrices(ctx, dedupe(tickers), "")
	if err != nil {
		return nil, fmt.Errorf("failed to get live prices: %w", err)
	}
	return prices, nil
}

func fillPriceCacheGaps(dates []string, cache map[string]map[string]decimal.Decimal) {
	for _, symbolCache := range cache {
		for _, date := range dates {
			if _, found := symbolCache[date]; found {
				continue
			}
			// instead of doing this linear scan, we could binary search
			// for the most recent date
			mostRecentDate := date
			for numTries := 0; numTries < maxGapFillDays; numTries++ {
				mostRecentDate = util.MustAddDays(mostRecentDate, -1)
				if price, found := symbolCache[mostRecentDate]; found {
					symbolCache[date] = price
					break
				}
			}
		}
	}
}

func dedupe(values []string) []string {
	set := map[string]struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
