package service

import (
	"context"
	"sync"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// PriceMonitor polls quotes for the subscribed symbols once a second. A
// failing symbol is logged and skipped for the cycle; it never blocks the
// others, and its previous quote stays readable until a fresh one lands.
type PriceMonitor interface {
	Start(ctx context.Context)
	Subscribe(stockCodes ...string)
	Unsubscribe(stockCodes ...string)
	// Quote returns the latest quote for the symbol, or nil when none has
	// been fetched yet.
	Quote(stockCode string) *dto.Quote
	// Quotes returns a snapshot of all latest quotes.
	Quotes() map[string]*dto.Quote
}

type priceMonitor struct {
	cfg        *config.Config
	log        *logger.Logger
	kiwoomRepo repository.KiwoomRepository

	mu         sync.RWMutex
	subscribed map[string]struct{}
	latest     map[string]*dto.Quote
	failures   map[string]int
}

func NewPriceMonitor(cfg *config.Config, log *logger.Logger, kiwoomRepo repository.KiwoomRepository) PriceMonitor {
	return &priceMonitor{
		cfg:        cfg,
		log:        log,
		kiwoomRepo: kiwoomRepo,
		subscribed: make(map[string]struct{}),
		latest:     make(map[string]*dto.Quote),
		failures:   make(map[string]int),
	}
}

func (m *priceMonitor) Subscribe(stockCodes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range stockCodes {
		if code == "" {
			continue
		}
		m.subscribed[code] = struct{}{}
	}
}

func (m *priceMonitor) Unsubscribe(stockCodes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range stockCodes {
		delete(m.subscribed, code)
		delete(m.latest, code)
		delete(m.failures, code)
	}
}

func (m *priceMonitor) Quote(stockCode string) *dto.Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest[stockCode]
}

func (m *priceMonitor) Quotes() map[string]*dto.Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make(map[string]*dto.Quote, len(m.latest))
	for code, q := range m.latest {
		snapshot[code] = q
	}
	return snapshot
}

func (m *priceMonitor) Start(ctx context.Context) {
	interval := m.cfg.Monitor.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	m.log.Info("Price monitor started",
		logger.StringField("interval", interval.String()),
		logger.IntField("concurrency", m.cfg.Monitor.QuoteConcurrency),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Price monitor stopped")
			return
		case <-ticker.C:
			if !MarketActive(utils.TimeNowKST()) {
				continue
			}
			m.pollOnce(ctx)
		}
	}
}

func (m *priceMonitor) pollOnce(ctx context.Context) {
	m.mu.RLock()
	codes := make([]string, 0, len(m.subscribed))
	for code := range m.subscribed {
		codes = append(codes, code)
	}
	m.mu.RUnlock()

	if len(codes) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	concurrency := m.cfg.Monitor.QuoteConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			quote, err := m.kiwoomRepo.GetQuote(gctx, code)
			if err != nil {
				m.recordFailure(gctx, code, err)
				// Isolation: one symbol's failure never aborts the cycle.
				return nil
			}
			m.mu.Lock()
			m.latest[code] = quote
			m.failures[code] = 0
			m.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (m *priceMonitor) recordFailure(ctx context.Context, code string, err error) {
	m.mu.Lock()
	m.failures[code]++
	count := m.failures[code]
	m.mu.Unlock()

	if count == 1 || count%60 == 0 {
		m.log.WarnContext(ctx, "Quote fetch failed",
			logger.StringField("stock_code", code),
			logger.IntField("consecutive_failures", count),
			logger.ErrorField(err),
		)
	}
}
