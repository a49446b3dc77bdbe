package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// FixedMarketData stands in for yahoo and alpaca when ALPHA_ENV=test
// so nothing leaves the box. it serves both oracles from tables
type FixedMarketData struct {
	mutex *sync.RWMutex
	// ticker -> date -> close
	closes map[string]map[string]decimal.Decimal
	live   map[string]decimal.Decimal
	// ticker -> ex date -> amount per share
	dividends map[string]map[string]decimal.Decimal
}

func NewFixedMarketData() *FixedMarketData {
	return &FixedMarketData{
		mutex:     &sync.RWMutex{},
		closes:    map[string]map[string]decimal.Decimal{},
		live:      map[string]decimal.Decimal{},
		dividends: map[string]map[string]decimal.Decimal{},
	}
}

type marketDataRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Price  float64 `csv:"price"`
	// optional
	Dividend float64 `csv:"dividend"`
}

// LoadFixedMarketData reads date,symbol,price[,dividend] rows. an
// empty date is a live quote
func LoadFixedMarketData(r io.Reader) (*FixedMarketData, error) {
	rows := []marketDataRow{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse market data csv: %w", err)
	}
	m := NewFixedMarketData()
	for _, row := range rows {
		symbol := strings.ToUpper(row.Symbol)
		if row.Date == "" {
			m.SetLive(symbol, decimal.NewFromFloat(row.Price))
			continue
		}
		if row.Price > 0 {
			m.SetClose(symbol, row.Date, decimal.NewFromFloat(row.Price))
		}
		if row.Dividend > 0 {
			m.SetDividend(symbol, row.Date, decimal.NewFromFloat(row.Dividend))
		}
	}
	return m, nil
}

func LoadFixedMarketDataFile(path string) (*FixedMarketData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data file: %w", err)
	}
	defer f.Close()
	return LoadFixedMarketData(f)
}

func (m *FixedMarketData) SetClose(ticker, date string, price decimal.Decimal) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.closes[ticker]; !ok {
		m.closes[ticker] = map[string]decimal.Decimal{}
	}
	m.closes[ticker][date] = price
}

func (m *FixedMarketData) SetLive(ticker string, price decimal.Decimal) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.live[ticker] = price
}

func (m *FixedMarketData) SetDividend(ticker, date string, amount decimal.Decimal) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.dividends[ticker]; !ok {
		m.dividends[ticker] = map[string]decimal.Decimal{}
	}
	m.dividends[ticker][date] = amount
}

// GetPrices falls back to the latest close when there is no live quote
func (m *FixedMarketData) GetPrices(ctx context.Context, tickers []string, date string) (map[string]decimal.Decimal, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := map[string]decimal.Decimal{}
	for _, t := range tickers {
		if date != "" {
			if p, ok := m.closes[t][date]; ok {
				out[t] = p
			}
			continue
		}
		if p, ok := m.live[t]; ok {
			out[t] = p
			continue
		}
		dates := make([]string, 0, len(m.closes[t]))
		for d := range m.closes[t] {
			dates = append(dates, d)
		}
		if len(dates) > 0 {
			sort.Strings(dates)
			out[t] = m.closes[t][dates[len(dates)-1]]
		}
	}
	return out, nil
}

func (m *FixedMarketData) GetPriceRange(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return inRange(m.closes, tickers, start, end), nil
}

func (m *FixedMarketData) GetDividends(ctx context.Context, tickers []string, start, end string) (map[string]map[string]decimal.Decimal, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return inRange(m.dividends, tickers, start, end), nil
}

func inRange(table map[string]map[string]decimal.Decimal, tickers []string, start, end string) map[string]map[string]decimal.Decimal {
	out := map[string]map[string]decimal.Decimal{}
	for _, t := range tickers {
		for d, v := range table[t] {
			if d < start || d > end {
				continue
			}
			if _, ok := out[t]; !ok {
				out[t] = map[string]decimal.Decimal{}
			}
			out[t][d] = v
		}
	}
	return out
}
