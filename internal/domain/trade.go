package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeAction string

const (
	TradeActionEntry TradeAction = "ENTRY"
	TradeActionExit  TradeAction = "EXIT"
)

// JournalEntry is one logged trade. BackfilledThrough is the last
// persisted snapshot date that already reflects the trade; a trade
// dated today keeps BackfilledThrough < EffectiveDate until that
// day is first persisted
type JournalEntry struct {
	ID                uuid.UUID        `json:"id"`
	Ticker            string           `json:"ticker"`
	Action            TradeAction      `json:"action"`
	Direction         Direction        `json:"direction"`
	Shares            decimal.Decimal  `json:"shares"`
	Price             decimal.Decimal  `json:"price"`
	EffectiveDate     string           `json:"effectiveDate"`
	CreatedAt         time.Time        `json:"createdAt"`
	Notes             string           `json:"notes,omitempty"`
	Tags              []string         `json:"tags,omitempty"`
	RealizedPL        *decimal.Decimal `json:"realizedPL,omitempty"`
	BackfilledThrough string           `json:"backfilledThrough,omitempty"`
}

func (e JournalEntry) Delta() TradeDelta {
	return TradeDelta{
		Ticker:     e.Ticker,
		Action:     e.Action,
		Direction:  e.Direction,
		Shares:     e.Shares,
		Price:      e.Price,
		Date:       e.EffectiveDate,
		RealizedPL: e.RealizedPL,
	}
}

// TradeDelta is the position change one trade makes on its
// effective date
type TradeDelta struct {
	Ticker    string
	Action    TradeAction
	Direction Direction
	Shares    decimal.Decimal
	Price     decimal.Decimal
	Date      string
	// set on exits whose realized P/L was already booked against
	// current positions, so replay books the same amount
	RealizedPL *decimal.Decimal
}

func (d TradeDelta) IsEntry() bool {
	return d.Action == TradeActionEntry
}

// Notional is what an entry adds to cumulativeInvested
func (d TradeDelta) Notional() decimal.Decimal {
	return d.Shares.Mul(d.Price)
}

type RealizedPLEntry struct {
	Date                 string          `json:"date"`
	RealizedPL           decimal.Decimal `json:"realizedPL"`
	CumulativeRealizedPL decimal.Decimal `json:"cumulativeRealizedPL"`
}

type Stats struct {
	TotalTrades     int             `json:"totalTrades"`
	TotalEntries    int             `json:"totalEntries"`
	TotalExits      int             `json:"totalExits"`
	WinningExits    int             `json:"winningExits"`
	LosingExits     int             `json:"losingExits"`
	TotalRealizedPL decimal.Decimal `json:"totalRealizedPL"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// RefetchItem is a (ticker, date) pair that was valued at 0 because
// the oracle had no price
type RefetchItem struct {
	Ticker     string    `json:"ticker"`
	Date       string    `json:"date"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempts   int       `json:"attempts"`
}

func (r RefetchItem) Key() string {
	return RefetchKey(r.Ticker, r.Date)
}

func RefetchKey(ticker, date string) string {
	return ticker + "|" + date
}

type DividendHistory struct {
	Date    string          `json:"date"`
	Entries []DividendEntry `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}
