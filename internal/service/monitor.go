package service

import (
	"context"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// MonitorService is the decision loop. Every cycle it feeds the latest
// quotes through the entry service, runs the stop-loss pass, and inside the
// close window hands positions to the close engine. Day boundaries reset the
// trigger registry and the engine's memo.
type MonitorService interface {
	Run(ctx context.Context)
}

type monitorService struct {
	cfg           *config.Config
	log           *logger.Logger
	watchlistRepo repository.WatchlistRepository
	lotRepo       repository.LotRepository
	priceMonitor  PriceMonitor
	entrySvc      EntryService
	triggerSvc    TriggerService
	closeEngine   CloseEngine
	syncSvc       SyncService
	ledgerSvc     LedgerService

	day        time.Time
	subscribed map[string]struct{}
}

func NewMonitorService(
	cfg *config.Config,
	log *logger.Logger,
	watchlistRepo repository.WatchlistRepository,
	lotRepo repository.LotRepository,
	priceMonitor PriceMonitor,
	entrySvc EntryService,
	triggerSvc TriggerService,
	closeEngine CloseEngine,
	syncSvc SyncService,
	ledgerSvc LedgerService,
) MonitorService {
	return &monitorService{
		cfg:           cfg,
		log:           log,
		watchlistRepo: watchlistRepo,
		lotRepo:       lotRepo,
		priceMonitor:  priceMonitor,
		entrySvc:      entrySvc,
		triggerSvc:    triggerSvc,
		closeEngine:   closeEngine,
		syncSvc:       syncSvc,
		ledgerSvc:     ledgerSvc,
		subscribed:    make(map[string]struct{}),
	}
}

func (s *monitorService) Run(ctx context.Context) {
	interval := s.cfg.Monitor.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	s.log.Info("Monitor loop started", logger.StringField("interval", interval.String()))

	sweepTicker := time.NewTicker(30 * time.Second)
	defer sweepTicker.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.reconcileOnStart(ctx)
	s.refreshSubscriptions(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Monitor loop stopped")
			return
		case <-sweepTicker.C:
			if swept, err := s.triggerSvc.SweepStale(ctx); err != nil {
				s.log.ErrorContext(ctx, "Stale trigger sweep failed", logger.ErrorField(err))
			} else if swept > 0 {
				s.log.WarnContext(ctx, "Stale triggers swept", logger.IntField("count", swept))
			}
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *monitorService) cycle(ctx context.Context) {
	now := utils.TimeNowKST()

	today := TradingDayOf(now)
	if !s.day.Equal(today) {
		if !s.day.IsZero() {
			s.triggerSvc.ResetDay(ctx)
			s.closeEngine.ResetDay()
		}
		s.day = today
		s.refreshSubscriptions(ctx)
	}

	if !MarketActive(now) {
		return
	}

	quotes := s.priceMonitor.Quotes()
	if len(quotes) == 0 {
		return
	}

	// Entries first so a breakout in the close window can still be pyramided
	// by the close pass.
	if EntryAllowed(now) || InMarketOpenMinute(now) {
		items, err := s.watchlistRepo.GetActive(ctx)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to load watchlist", logger.ErrorField(err))
		} else {
			for i := range items {
				item := &items[i]
				quote, ok := quotes[item.StockCode]
				if !ok || quote == nil {
					continue
				}
				if err := s.entrySvc.TryEnter(ctx, quote, item, now); err != nil {
					s.log.ErrorContextWithAlert(ctx, "Entry attempt failed",
						logger.ErrorField(err),
						logger.StringField("stock_code", item.StockCode),
					)
				}
			}
		}
	}

	if _, err := s.closeEngine.RunStopLossPass(ctx, quotes); err != nil {
		s.log.ErrorContext(ctx, "Stop loss pass failed", logger.ErrorField(err))
	}

	// Non-secondary symbols close before the KRX auction, the rest in the
	// late window; the engine routes each position by its venue memo.
	if InKRXCloseWindow(now) || InCloseWindow(now) {
		if _, err := s.closeEngine.RunClosePass(ctx, quotes); err != nil {
			s.log.ErrorContext(ctx, "Close pass failed", logger.ErrorField(err))
		}
	}
}

// reconcileOnStart aligns the ledger with brokerage holdings before the
// first decision cycle runs; a mid-day restart must not trade against lots
// that drifted while the process was down.
func (s *monitorService) reconcileOnStart(ctx context.Context) {
	today := TradingDayOf(utils.TimeNowKST())

	if _, err := s.syncSvc.SyncHoldings(ctx, today); err != nil {
		s.log.ErrorContextWithAlert(ctx, "Startup holdings sync failed", logger.ErrorField(err))
		return
	}
	if err := s.ledgerSvc.Reconcile(ctx, today); err != nil {
		s.log.ErrorContextWithAlert(ctx, "Startup reconcile failed", logger.ErrorField(err))
		return
	}
	s.log.Info("Startup reconcile completed", logger.StringField("trading_day", today.Format("2006-01-02")))
}

// refreshSubscriptions points the price monitor at the active watchlist and
// every symbol with open lots, and drops symbols no longer in either set.
func (s *monitorService) refreshSubscriptions(ctx context.Context) {
	desired := make(map[string]struct{})

	items, err := s.watchlistRepo.GetActive(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load watchlist for subscriptions", logger.ErrorField(err))
	} else {
		for _, item := range items {
			desired[item.StockCode] = struct{}{}
		}
	}

	codes, err := s.lotRepo.GetOpenStockCodes(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load open positions for subscriptions", logger.ErrorField(err))
	} else {
		for _, code := range codes {
			desired[code] = struct{}{}
		}
	}
	if err != nil && len(desired) == 0 {
		return
	}

	var stale []string
	for code := range s.subscribed {
		if _, keep := desired[code]; !keep {
			stale = append(stale, code)
		}
	}
	if len(stale) > 0 {
		s.priceMonitor.Unsubscribe(stale...)
	}
	for code := range desired {
		s.priceMonitor.Subscribe(code)
	}
	s.subscribed = desired
}
