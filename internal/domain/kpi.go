package domain

import (
	"encoding/json"
	"fmt"
)

type Timeframe string

const (
	TimeframeAll Timeframe = "ALL"
	TimeframeYTD Timeframe = "YTD"
	Timeframe1M  Timeframe = "1M"
	Timeframe3M  Timeframe = "3M"
	Timeframe6M  Timeframe = "6M"
	Timeframe1Y  Timeframe = "1Y"
)

var AllTimeframes = []Timeframe{
	TimeframeAll,
	TimeframeYTD,
	Timeframe1M,
	Timeframe3M,
	Timeframe6M,
	Timeframe1Y,
}

// TimeframeKPIs are dollar amounts only
type TimeframeKPIs struct {
	TotalPL        *float64 `json:"totalPL,omitempty"`
	PLAbs          *float64 `json:"plAbs,omitempty"`
	PLChangeAbs    *float64 `json:"plChangeAbs,omitempty"`
	MaxDrawdownAbs float64  `json:"maxDrawdownAbs"`
}

// SeriesPoint marshals as [date, value]
type SeriesPoint struct {
	Date  string
	Value float64
}

func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Date, p.Value})
}

func (p *SeriesPoint) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected [date, value], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Date); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Value)
}

type TimeframeAnalysis struct {
	Summary string        `json:"summary"`
	KPIs    TimeframeKPIs `json:"kpis"`
	Actions []string      `json:"actions"`
	Series  []SeriesPoint `json:"series"`
}
