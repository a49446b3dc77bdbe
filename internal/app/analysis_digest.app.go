package app

import (
	"context"
	"fmt"
	"tradejournal/internal/logger"
	"tradejournal/internal/service"
	l3_service "tradejournal/internal/service/l3"
)

// AnalysisDigestApp runs a user's analysis and mails it. the email
// service only renders, it never computes KPIs itself
type AnalysisDigestApp interface {
	SendDigest(ctx context.Context, userID, to string) (*l3_service.AnalysisResult, error)
}

type analysisDigestAppHandler struct {
	AnalysisService l3_service.AnalysisService
	EmailService    service.EmailService
}

func NewAnalysisDigestApp(
	analysisService l3_service.AnalysisService,
	emailService service.EmailService,
) AnalysisDigestApp {
	return &analysisDigestAppHandler{
		AnalysisService: analysisService,
		EmailService:    emailService,
	}
}

func (h *analysisDigestAppHandler) SendDigest(ctx context.Context, userID, to string) (*l3_service.AnalysisResult, error) {
	if h.EmailService == nil {
		return nil, fmt.Errorf("email is not configured")
	}
	analysis, err := h.AnalysisService.Analyze(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze journal: %w", err)
	}
	if err := h.EmailService.SendAnalysisDigest(ctx, to, analysis.AsOf, analysis.Timeframes); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Infof("sent digest for %s", userID)
	return analysis, nil
}
