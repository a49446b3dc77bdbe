package calculator

import (
	"fmt"
	"sort"
	"tradejournal/internal/domain"
	"tradejournal/internal/util"

	"github.com/montanaflynn/stats"
)

type plPoint struct {
	date string
	pl   float64
}

type TimeframeResult struct {
	KPIs   domain.TimeframeKPIs
	Series []domain.SeriesPoint
}

// SnapshotPL picks the P/L of one snapshot. v2 documents carry
// totalPL; older ones only have one of the legacy names. a document
// with neither counts as 0
func SnapshotPL(s *domain.DailySnapshot) float64 {
	if s.TotalPL != nil {
		return s.TotalPL.InexactFloat64()
	}
	if s.LegacyPL != nil {
		return s.LegacyPL.InexactFloat64()
	}
	return 0
}

// TimeframeStart returns the first date in the window, or "" for ALL
func TimeframeStart(tf domain.Timeframe, today string) (string, error) {
	months := 0
	switch tf {
	case domain.TimeframeAll:
		return "", nil
	case domain.TimeframeYTD:
		if len(today) < 4 {
			return "", fmt.Errorf("invalid date %q", today)
		}
		return today[:4] + "-01-01", nil
	case domain.Timeframe1M:
		months = 1
	case domain.Timeframe3M:
		months = 3
	case domain.Timeframe6M:
		months = 6
	case domain.Timeframe1Y:
		months = 12
	default:
		return "", fmt.Errorf("unknown timeframe %s", tf)
	}
	return util.AddMonths(today, -months)
}

// Downsample keeps daily points for the last year and only the
// latest point of each calendar month before that
func Downsample(points []domain.SeriesPoint, today string) ([]domain.SeriesPoint, error) {
	cutoff, err := util.AddMonths(today, -12)
	if err != nil {
		return nil, err
	}
	out := []domain.SeriesPoint{}
	for i, p := range points {
		if p.Date >= cutoff {
			out = append(out, p)
			continue
		}
		isLastOfMonth := i+1 == len(points) ||
			util.MonthKey(points[i+1].Date) != util.MonthKey(p.Date) ||
			points[i+1].Date >= cutoff
		if isLastOfMonth {
			out = append(out, p)
		}
	}
	return out, nil
}

// AggregateTimeframes rolls a snapshot series up into dollar KPIs per
// window. KPIs use every snapshot; only the returned series is down
// sampled. drawdown is measured from the window's first value, not
// from a running peak
func AggregateTimeframes(snapshots []*domain.DailySnapshot, today string) (map[domain.Timeframe]TimeframeResult, error) {
	points := []plPoint{}
	for _, s := range snapshots {
		if s == nil || s.Date > today {
			continue
		}
		points = append(points, plPoint{
			date: s.Date,
			pl:   SnapshotPL(s),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].date < points[j].date
	})

	series := make([]domain.SeriesPoint, len(points))
	for i, p := range points {
		series[i] = domain.SeriesPoint{Date: p.date, Value: p.pl}
	}
	display, err := Downsample(series, today)
	if err != nil {
		return nil, fmt.Errorf("failed to downsample series: %w", err)
	}

	out := map[domain.Timeframe]TimeframeResult{}
	for _, tf := range domain.AllTimeframes {
		start, err := TimeframeStart(tf, today)
		if err != nil {
			return nil, err
		}

		values := []float64{}
		for _, p := range points {
			if p.date >= start {
				values = append(values, p.pl)
			}
		}
		windowSeries := []domain.SeriesPoint{}
		for _, p := range display {
			if p.Date >= start {
				windowSeries = append(windowSeries, p)
			}
		}

		kpis, err := windowKPIs(tf, values)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s kpis: %w", tf, err)
		}
		out[tf] = TimeframeResult{
			KPIs:   *kpis,
			Series: windowSeries,
		}
	}

	return out, nil
}

func windowKPIs(tf domain.Timeframe, values []float64) (*domain.TimeframeKPIs, error) {
	furthest, nearest := 0.0, 0.0
	drawdown := 0.0
	if len(values) > 0 {
		furthest = values[0]
		nearest = values[len(values)-1]
		min, err := stats.Min(values)
		if err != nil {
			return nil, err
		}
		drawdown = min - furthest
	}

	kpis := &domain.TimeframeKPIs{
		MaxDrawdownAbs: drawdown,
	}
	if tf == domain.TimeframeAll {
		kpis.TotalPL = &nearest
		plAbs := nearest
		kpis.PLAbs = &plAbs
	} else {
		change := nearest - furthest
		kpis.PLChangeAbs = &change
	}
	return kpis, nil
}
