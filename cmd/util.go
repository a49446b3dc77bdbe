package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
	"tradejournal/api"
	"tradejournal/internal/app"
	"tradejournal/internal/logger"
	"tradejournal/internal/repository"
	"tradejournal/internal/service"
	l1_service "tradejournal/internal/service/l1"
	l2_service "tradejournal/internal/service/l2"
	l3_service "tradejournal/internal/service/l3"
	"tradejournal/internal/util"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the outside world. everything else is built from
// them by BuildApiHandler
type Dependencies struct {
	// nil with the in-memory store
	Db             *sql.DB
	Store          repository.DocumentRepository
	LiveCache      repository.LiveSnapshotCacheRepository
	PriceOracle    repository.PriceOracle
	DividendOracle repository.DividendOracle
	// optional
	GptRepository   repository.GptRepository
	EmailRepository repository.EmailRepository
	JwtDecodeToken  string
	// nil means time.Now
	Now func() time.Time
}

func CloseDependencies(handler *api.ApiHandler) {
	if handler.PriceRepairApp != nil {
		handler.PriceRepairApp.Stop()
	}
	if handler.Db == nil {
		return
	}
	if err := handler.Db.Close(); err != nil {
		logger.New().Errorf("failed to close db: %v", err)
	}
}

func BuildApiHandler(deps Dependencies) *api.ApiHandler {
	store := deps.Store
	snapshotRepository := repository.NewSnapshotRepository(store)
	journalRepository := repository.NewJournalRepository(store)
	positionRepository := repository.NewPositionRepository(store)
	realizedPLRepository := repository.NewRealizedPLRepository(store)
	refetchQueueRepository := repository.NewRefetchQueueRepository(store)
	statsRepository := repository.NewStatsRepository(store)
	dividendHistoryRepository := repository.NewDividendHistoryRepository(store)

	liveCache := deps.LiveCache
	if liveCache == nil {
		liveCache = repository.NewMemoryLiveSnapshotCache()
	}

	priceService := l1_service.NewPriceService(deps.PriceOracle)
	dividendService := l1_service.NewDividendService(deps.DividendOracle, dividendHistoryRepository, snapshotRepository)
	snapshotService := l1_service.NewSnapshotService(
		snapshotRepository,
		journalRepository,
		refetchQueueRepository,
		priceService,
		dividendService,
		deps.Now,
	)
	tradeService := l1_service.NewTradeService(positionRepository)

	backfillService := l2_service.NewBackfillService(snapshotService, priceService, dividendService)
	liveSnapshotService := l2_service.NewLiveSnapshotService(
		liveCache,
		positionRepository,
		realizedPLRepository,
		snapshotService,
		priceService,
	)

	locks := l3_service.NewUserLocks()
	tradingService := l3_service.NewTradingService(
		tradeService,
		snapshotService,
		backfillService,
		liveSnapshotService,
		journalRepository,
		realizedPLRepository,
		statsRepository,
		locks,
	)
	analysisService := l3_service.NewAnalysisService(
		snapshotService,
		liveSnapshotService,
		journalRepository,
		deps.GptRepository,
	)
	priceRepairService := l3_service.NewPriceRepairService(
		refetchQueueRepository,
		snapshotService,
		priceService,
		locks,
	)

	var digestApp app.AnalysisDigestApp
	if deps.EmailRepository != nil {
		digestApp = app.NewAnalysisDigestApp(analysisService, service.NewEmailService(deps.EmailRepository))
	}

	return &api.ApiHandler{
		Db:                  deps.Db,
		TradingService:      tradingService,
		AnalysisService:     analysisService,
		ExportService:       l3_service.NewExportService(snapshotService, journalRepository),
		PriceRepairService:  priceRepairService,
		LiveSnapshotService: liveSnapshotService,
		AnalysisDigestApp:   digestApp,
		PriceRepairApp:      app.NewPriceRepairApp(context.Background(), priceRepairService),
		JwtDecodeToken:      deps.JwtDecodeToken,
	}
}

func InitializeDependencies() (*api.ApiHandler, error) {
	log := logger.New()
	secrets, err := util.LoadSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	deps := Dependencies{
		JwtDecodeToken: secrets.Jwt,
		Now:            time.Now,
	}

	if secrets.Db.Host != "" {
		dbConn, err := sql.Open("postgres", secrets.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		deps.Db = dbConn
		deps.Store = repository.NewPostgresDocumentRepository(dbConn)
	} else {
		log.Warn("no db configured, documents are kept in memory")
		deps.Store = repository.NewMemoryDocumentRepository()
	}

	if secrets.Redis.Url != "" {
		opts, err := redis.ParseURL(secrets.Redis.Url)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		deps.LiveCache = repository.NewRedisLiveSnapshotCache(redis.NewClient(opts))
	}

	if strings.EqualFold(os.Getenv("ALPHA_ENV"), "test") || UseFixedMarketData() {
		marketData := NewFixedMarketData()
		if path := os.Getenv("TRADEJOURNAL_MARKET_DATA"); path != "" {
			marketData, err = LoadFixedMarketDataFile(path)
			if err != nil {
				return nil, err
			}
		}
		deps.PriceOracle = marketData
		deps.DividendOracle = marketData
	} else {
		oracle := repository.NewMarketDataOracle(
			repository.NewYahooRepository(),
			repository.NewAlpacaRepository(secrets.Alpaca.ApiKey, secrets.Alpaca.ApiSecret, secrets.Alpaca.Endpoint),
		)
		deps.PriceOracle = oracle
		deps.DividendOracle = oracle
	}

	if secrets.ChatGPTApiKey != "" {
		gptRepository, err := repository.NewGptRepository(secrets.ChatGPTApiKey)
		if err != nil {
			return nil, err
		}
		deps.GptRepository = gptRepository
	}

	if secrets.SES.Region != "" && secrets.SES.FromEmail != "" {
		emailRepository, err := repository.NewEmailRepository(secrets.SES.Region, secrets.SES.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to create email repository: %w", err)
		}
		deps.EmailRepository = emailRepository
	}

	return BuildApiHandler(deps), nil
}

// UseFixedMarketData reports whether TRADEJOURNAL_MARKET_DATA points
// at a csv of closes to serve instead of the live oracles
func UseFixedMarketData() bool {
	return os.Getenv("TRADEJOURNAL_MARKET_DATA") != ""
}
