package l3_service

import (
	"context"
	"fmt"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"
	l2_service "tradejournal/internal/service/l2"
)

type AnalysisService interface {
	Analyze(ctx context.Context, userID string) (*AnalysisResult, error)
}

type AnalysisResult struct {
	AsOf       string                                        `json:"asOf"`
	Timeframes map[domain.Timeframe]domain.TimeframeAnalysis `json:"timeframes"`
}

type analysisServiceHandler struct {
	SnapshotService     l1_service.SnapshotService
	LiveSnapshotService l2_service.LiveSnapshotService
	JournalRepository   repository.JournalRepository
	// optional. without it summaries are generated from the numbers
	GptRepository repository.GptRepository
}

func NewAnalysisService(
	snapshotService l1_service.SnapshotService,
	liveSnapshotService l2_service.LiveSnapshotService,
	journalRepository repository.JournalRepository,
	gptRepository repository.GptRepository,
) AnalysisService {
	return analysisServiceHandler{
		SnapshotService:     snapshotService,
		LiveSnapshotService: liveSnapshotService,
		JournalRepository:   journalRepository,
		GptRepository:       gptRepository,
	}
}

func (h analysisServiceHandler) Analyze(ctx context.Context, userID string) (*AnalysisResult, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)
	today := h.SnapshotService.Today()

	series, err := h.loadSeries(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, endSpan := profile.StartNewSpan("aggregate kpis")
	aggregated, err := calculator.AggregateTimeframes(series, today)
	endSpan()
	if err != nil {
		return nil, err
	}

	kpis := map[domain.Timeframe]domain.TimeframeKPIs{}
	for tf, r := range aggregated {
		kpis[tf] = r.KPIs
	}

	summaries := map[domain.Timeframe]repository.TimeframeSummary{}
	if h.GptRepository != nil && len(series) > 0 {
		_, endSpan := profile.StartNewSpan("summarize kpis")
		summaries, err = h.GptRepository.SummarizeTimeframes(ctx, kpis)
		endSpan()
		if err != nil {
			// the numbers stand on their own
			log.Warnf("failed to summarize analysis for %s: %v", userID, err)
			summaries = map[domain.Timeframe]repository.TimeframeSummary{}
		}
	}

	out := &AnalysisResult{
		AsOf:       today,
		Timeframes: map[domain.Timeframe]domain.TimeframeAnalysis{},
	}
	for _, tf := range domain.AllTimeframes {
		r := aggregated[tf]
		summary, ok := summaries[tf]
		if !ok || summary.Summary == "" {
			summary = repository.TimeframeSummary{
				Summary: describeKPIs(r.KPIs),
				Actions: []string{},
			}
		}
		if summary.Actions == nil {
			summary.Actions = []string{}
		}
		out.Timeframes[tf] = domain.TimeframeAnalysis{
			Summary: summary.Summary,
			KPIs:    r.KPIs,
			Actions: summary.Actions,
			Series:  r.Series,
		}
	}
	return out, nil
}

// loadSeries is every persisted day since the first trade plus
// today's live value
func (h analysisServiceHandler) loadSeries(ctx context.Context, userID string) ([]*domain.DailySnapshot, error) {
	log := logger.FromContext(ctx)

	entries, err := h.JournalRepository.List(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []*domain.DailySnapshot{}, nil
	}

	series, err := h.SnapshotService.EnsureRange(ctx, userID, entries[0].EffectiveDate, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	live, err := h.LiveSnapshotService.Get(ctx, userID)
	if err != nil {
		log.Warnf("analysis for %s is missing today: %v", userID, err)
		return series, nil
	}
	return append(series, live), nil
}

func describeKPIs(kpis domain.TimeframeKPIs) string {
	if kpis.TotalPL != nil {
		return fmt.Sprintf("Total P/L is $%.2f. The deepest drawdown from the start of the record was $%.2f.", *kpis.TotalPL, kpis.MaxDrawdownAbs)
	}
	change := 0.0
	if kpis.PLChangeAbs != nil {
		change = *kpis.PLChangeAbs
	}
	return fmt.Sprintf("P/L moved by $%.2f over this window, with a drawdown of $%.2f from its first day.", change, kpis.MaxDrawdownAbs)
}
