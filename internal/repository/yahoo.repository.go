package repository

import (
	"context"
	"fmt"
	"time"
	"tradejournal/internal/logger"
	"tradejournal/internal/util"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// YahooRepository reads historical daily closes
type YahooRepository interface {
	// GetCloses returns symbol -> trading date -> close for [start, end].
	// a symbol yahoo doesn't know is left out, not an error
	GetCloses(ctx context.Context, symbols []string, start, end string) (map[string]map[string]decimal.Decimal, error)
}

type dailyBar struct {
	Date  string
	Close decimal.Decimal
}

type yahooRepositoryHandler struct {
	fetch func(symbol string, start, end time.Time) ([]dailyBar, error)
}

func NewYahooRepository() YahooRepository {
	return yahooRepositoryHandler{
		fetch: fetchChart,
	}
}

func fetchChart(symbol string, start, end time.Time) ([]dailyBar, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	out := []dailyBar{}
	for iter.Next() {
		out = append(out, dailyBar{
			Date:  util.EasternDate(time.Unix(int64(iter.Bar().Timestamp), 0)),
			Close: iter.Bar().Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}
	return out, nil
}

func (h yahooRepositoryHandler) GetCloses(ctx context.Context, symbols []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	log := logger.FromContext(ctx)
	startTime, err := util.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endTime, err := util.ParseDate(end)
	if err != nil {
		return nil, err
	}
	// chart end is exclusive
	endTime = endTime.AddDate(0, 0, 1)

	out := map[string]map[string]decimal.Decimal{}
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := h.fetch(symbol, startTime, endTime)
		if err != nil {
			log.Warnf("no historical prices for %s: %v", symbol, err)
			continue
		}
		for _, bar := range bars {
			if bar.Date < start || bar.Date > end || !bar.Close.IsPositive() {
				continue
			}
			if _, ok := out[symbol]; !ok {
				out[symbol] = map[string]decimal.Decimal{}
			}
			out[symbol][bar.Date] = bar.Close
		}
	}
	return out, nil
}
