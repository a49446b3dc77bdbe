package app

import (
	"context"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	l3_service "tradejournal/internal/service/l3"

	"github.com/robfig/cron/v3"
)

// every 30 minutes, on the second
const PriceRepairSchedule = "0 */30 * * * *"

// PriceRepairApp retries the prices the backfill couldn't find on a
// schedule. runs are skipped while the previous one is still going
type PriceRepairApp struct {
	PriceRepairService l3_service.PriceRepairService

	cron    *cron.Cron
	baseCtx context.Context
}

func NewPriceRepairApp(baseCtx context.Context, priceRepairService l3_service.PriceRepairService) *PriceRepairApp {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &PriceRepairApp{
		PriceRepairService: priceRepairService,
		cron:               cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		baseCtx:            baseCtx,
	}
}

// RunOnce drains every user's refetch queue
func (h *PriceRepairApp) RunOnce(ctx context.Context) (*l3_service.RepairResult, error) {
	log := logger.FromContext(ctx)
	profile, endProfile := domain.NewProfile()
	ctx = domain.WithProfile(ctx, profile)

	result, err := h.PriceRepairService.RepairAll(ctx)
	endProfile()
	if err != nil {
		log.Errorw("scheduled price repair finished with errors", "error", err, "profile", profile.Summary())
		return result, err
	}
	log.Infow("scheduled price repair", "result", result, "profile", profile.Summary())
	return result, nil
}

func (h *PriceRepairApp) Start(spec string) error {
	if spec == "" {
		spec = PriceRepairSchedule
	}
	_, err := h.cron.AddFunc(spec, func() {
		// errors are already logged
		_, _ = h.RunOnce(h.baseCtx)
	})
	if err != nil {
		return err
	}
	logger.FromContext(h.baseCtx).Infof("price repair scheduled at %q", spec)
	h.cron.Start()
	return nil
}

func (h *PriceRepairApp) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
	logger.FromContext(h.baseCtx).Info("price repair stopped")
}
