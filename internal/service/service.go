package service

import (
	"krx-autotrade/config"
	"krx-autotrade/internal/repository"
	"krx-autotrade/internal/strategy"
	"krx-autotrade/pkg/cache"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/telegram"
)

type Service struct {
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
	LedgerService    LedgerService
	TriggerService   TriggerService
	OrderService     OrderService
	EntryService     EntryService
	VenueService     VenueService
	CloseEngine      CloseEngine
	SyncService      SyncService
	PriceMonitor     PriceMonitor
	MonitorService   MonitorService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	notifier *telegram.Notifier,
) *Service {
	ledgerService := NewLedgerService(cfg, log, repo.LotRepo, repo.TradeFillRepo, repo.HoldingRepo, repo.UnitOfWork, notifier)
	triggerService := NewTriggerService(cfg, log, repo.TriggerRepo)
	orderService := NewOrderService(cfg, log, repo.KiwoomRepo, repo.SystemParamRepo, inmemoryCache, notifier)
	entryService := NewEntryService(cfg, log, repo.LotRepo, triggerService, orderService)
	venueService := NewVenueService(cfg, log, repo.KiwoomRepo, inmemoryCache)
	closeEngine := NewCloseEngine(cfg, log, repo.LotRepo, repo.WatchlistRepo, repo.SystemParamRepo, triggerService, orderService, venueService)
	syncService := NewSyncService(cfg, log, repo.KiwoomRepo, repo.TradeFillRepo, repo.HoldingRepo, repo.UnitOfWork)
	priceMonitor := NewPriceMonitor(cfg, log, repo.KiwoomRepo)
	monitorService := NewMonitorService(cfg, log, repo.WatchlistRepo, repo.LotRepo, priceMonitor, entryService, triggerService, closeEngine, syncService, ledgerService)

	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy)
	executorStrategies[strategy.JobTypeLotRebuild] = strategy.NewLotRebuildStrategy(cfg, log, ledgerService)
	executorStrategies[strategy.JobTypeHoldingsSync] = strategy.NewHoldingsSyncStrategy(cfg, log, syncService, ledgerService)
	executorStrategies[strategy.JobTypeMetricRefresh] = strategy.NewMetricRefreshStrategy(cfg, log, ledgerService)
	executorStrategies[strategy.JobTypeTriggerSweep] = strategy.NewTriggerSweepStrategy(cfg, log, triggerService)
	executorStrategies[strategy.JobTypeDataCleanUp] = strategy.NewDataCleanUpStrategy(cfg, log, repo.JobRepo, repo.HoldingRepo)

	taskExecutor := NewTaskExecutor(cfg, log, repo.JobRepo, executorStrategies)
	schedulerService := NewSchedulerService(cfg, log, repo.JobRepo, taskExecutor)

	return &Service{
		SchedulerService: schedulerService,
		TaskExecutor:     taskExecutor,
		LedgerService:    ledgerService,
		TriggerService:   triggerService,
		OrderService:     orderService,
		EntryService:     entryService,
		VenueService:     venueService,
		CloseEngine:      closeEngine,
		SyncService:      syncService,
		PriceMonitor:     priceMonitor,
		MonitorService:   monitorService,
	}
}
