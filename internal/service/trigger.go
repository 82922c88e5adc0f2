package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"

	"gorm.io/datatypes"
)

// TriggerService enforces at-most-one entry attempt per symbol per trading
// day. Registration claims the symbol before any order goes out; the claim is
// backed by both an in-process set and the registry table's unique index, so
// a crash between claim and order still leaves a pending row to sweep.
type TriggerService interface {
	// Register claims the symbol for today. Returns the pending entry, or
	// ErrDuplicateTrigger when the symbol was already attempted.
	Register(ctx context.Context, stockCode string, entryType model.EntryType, detail datatypes.JSON) (*model.TriggerEntry, error)
	// Resolve moves a pending trigger to its terminal status.
	Resolve(ctx context.Context, entry *model.TriggerEntry, status model.TriggerStatus, entryPrice *float64, orderNo string) error
	// Attempted reports whether the symbol already has any trigger today.
	Attempted(ctx context.Context, stockCode string) (bool, error)
	// SuccessfulToday returns today's successful entries for the close engine.
	SuccessfulToday(ctx context.Context) ([]model.TriggerEntry, error)
	// SweepStale resolves pending triggers older than the configured timeout
	// to order_failed. Returns the number swept.
	SweepStale(ctx context.Context) (int, error)
	// ResetDay clears the in-process claim set at a day boundary.
	ResetDay(ctx context.Context)
}

type triggerService struct {
	cfg         *config.Config
	log         *logger.Logger
	triggerRepo repository.TriggerRepository

	mu      sync.Mutex
	day     time.Time
	claimed map[string]struct{}
}

func NewTriggerService(cfg *config.Config, log *logger.Logger, triggerRepo repository.TriggerRepository) TriggerService {
	return &triggerService{
		cfg:         cfg,
		log:         log,
		triggerRepo: triggerRepo,
		claimed:     make(map[string]struct{}),
	}
}

// claim reserves the symbol in-process. Returns false when already claimed
// today.
func (s *triggerService) claim(stockCode string, today time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.day.Equal(today) {
		s.day = today
		s.claimed = make(map[string]struct{})
	}
	if _, ok := s.claimed[stockCode]; ok {
		return false
	}
	s.claimed[stockCode] = struct{}{}
	return true
}

func (s *triggerService) unclaim(stockCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, stockCode)
}

func (s *triggerService) Register(ctx context.Context, stockCode string, entryType model.EntryType, detail datatypes.JSON) (*model.TriggerEntry, error) {
	now := utils.TimeNowKST()
	today := TradingDayOf(now)

	if !s.claim(stockCode, today) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTrigger, stockCode)
	}

	entry := &model.TriggerEntry{
		TradingDay:  today,
		StockCode:   stockCode,
		EntryType:   entryType,
		Status:      model.TriggerStatusPending,
		Detail:      detail,
		TriggeredAt: now,
	}

	created, err := s.triggerRepo.Create(ctx, entry)
	if err != nil {
		s.unclaim(stockCode)
		return nil, fmt.Errorf("failed to register trigger for %s: %w", stockCode, err)
	}
	if !created {
		// Another process, or a previous run before a restart, owns the day.
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTrigger, stockCode)
	}

	existing, err := s.triggerRepo.FindByDayAndCode(ctx, today, stockCode)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		entry = existing
	}

	s.log.InfoContext(ctx, "Trigger registered",
		logger.StringField("stock_code", stockCode),
		logger.StringField("entry_type", string(entryType)),
	)
	return entry, nil
}

func (s *triggerService) Resolve(ctx context.Context, entry *model.TriggerEntry, status model.TriggerStatus, entryPrice *float64, orderNo string) error {
	if entry.Status.Terminal() {
		return fmt.Errorf("trigger %d already resolved to %s", entry.ID, entry.Status)
	}
	if !status.Terminal() {
		return fmt.Errorf("cannot resolve trigger %d to non-terminal status %s", entry.ID, status)
	}

	if err := s.triggerRepo.Resolve(ctx, entry.ID, status, entryPrice, orderNo); err != nil {
		return fmt.Errorf("failed to resolve trigger %d: %w", entry.ID, err)
	}
	entry.Status = status
	entry.EntryPrice = entryPrice
	entry.OrderNo = orderNo

	s.log.InfoContext(ctx, "Trigger resolved",
		logger.StringField("stock_code", entry.StockCode),
		logger.StringField("status", string(status)),
	)
	return nil
}

func (s *triggerService) Attempted(ctx context.Context, stockCode string) (bool, error) {
	today := TradingDayOf(utils.TimeNowKST())

	s.mu.Lock()
	if s.day.Equal(today) {
		if _, ok := s.claimed[stockCode]; ok {
			s.mu.Unlock()
			return true, nil
		}
	}
	s.mu.Unlock()

	entry, err := s.triggerRepo.FindByDayAndCode(ctx, today, stockCode)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

func (s *triggerService) SuccessfulToday(ctx context.Context) ([]model.TriggerEntry, error) {
	today := TradingDayOf(utils.TimeNowKST())
	status := model.TriggerStatusSuccess
	return s.triggerRepo.GetByDay(ctx, today, &status)
}

func (s *triggerService) SweepStale(ctx context.Context) (int, error) {
	now := utils.TimeNowKST()
	today := TradingDayOf(now)
	cutoff := now.Add(-s.cfg.Monitor.StaleTriggerTimeout)

	stale, err := s.triggerRepo.GetStalePending(ctx, today, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load stale triggers: %w", err)
	}

	swept := 0
	for i := range stale {
		entry := stale[i]
		if err := s.triggerRepo.Resolve(ctx, entry.ID, model.TriggerStatusOrderFailed, nil, ""); err != nil {
			return swept, err
		}
		s.log.WarnContext(ctx, "Swept stale pending trigger",
			logger.StringField("stock_code", entry.StockCode),
			logger.StringField("triggered_at", entry.TriggeredAt.Format(time.RFC3339)),
		)
		swept++
	}
	return swept, nil
}

func (s *triggerService) ResetDay(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = time.Time{}
	s.claimed = make(map[string]struct{})
	s.log.InfoContext(ctx, "Trigger registry reset for new trading day")
}
