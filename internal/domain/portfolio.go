package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Lot is one FIFO entry lot. Date is the acquisition date and
// only decides where a back-dated buy is inserted in the stack
type Lot struct {
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Date   string          `json:"date,omitempty"`
}

// CurrentPosition is what the user holds right now for a ticker.
// the live snapshot is valued from these, not from history
type CurrentPosition struct {
	Ticker        string          `json:"ticker"`
	Lots          []Lot           `json:"lots"`
	ShortShares   decimal.Decimal `json:"shortShares"`
	AvgShortPrice decimal.Decimal `json:"avgShortPrice"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p CurrentPosition) LongShares() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lots {
		total = total.Add(l.Shares)
	}
	return total
}

func (p CurrentPosition) IsFlat() bool {
	return p.LongShares().IsZero() && p.ShortShares.IsZero()
}

func (p CurrentPosition) DeepCopy() *CurrentPosition {
	lots := make([]Lot, len(p.Lots))
	copy(lots, p.Lots)
	return &CurrentPosition{
		Ticker:        p.Ticker,
		Lots:          lots,
		ShortShares:   p.ShortShares,
		AvgShortPrice: p.AvgShortPrice,
		UpdatedAt:     p.UpdatedAt,
	}
}

type Portfolio struct {
	Positions map[string]*CurrentPosition
}

func NewPortfolio() *Portfolio {
	return &Portfolio{
		Positions: map[string]*CurrentPosition{},
	}
}

// HeldSymbols is sorted so price lookups and logs are deterministic
func (p Portfolio) HeldSymbols() []string {
	symbols := []string{}
	for symbol, position := range p.Positions {
		if position.IsFlat() {
			continue
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (p Portfolio) DeepCopy() *Portfolio {
	newPortfolio := &Portfolio{
		Positions: map[string]*CurrentPosition{},
	}
	for symbol, position := range p.Positions {
		newPortfolio.Positions[symbol] = position.DeepCopy()
	}

	return newPortfolio
}
