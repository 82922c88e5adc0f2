package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// EntryService turns watchlist quotes into entry orders. Two signals exist:
// a breakout, current price at or above the reference inside an entry
// window, and a gap-up, open above the reference in the first minute after
// the KRX open.
type EntryService interface {
	// EvaluateSignal reports the entry signal a quote produces, if any.
	EvaluateSignal(quote *dto.Quote, item *model.WatchlistItem, now time.Time) (model.EntryType, bool)
	// TryEnter runs the full entry pipeline for a signaling symbol: check
	// the preconditions, claim the trigger, size and place the order,
	// resolve the trigger.
	TryEnter(ctx context.Context, quote *dto.Quote, item *model.WatchlistItem, now time.Time) error
}

type entryService struct {
	cfg        *config.Config
	log        *logger.Logger
	lotRepo    repository.LotRepository
	triggerSvc TriggerService
	orderSvc   OrderService
}

func NewEntryService(cfg *config.Config, log *logger.Logger, lotRepo repository.LotRepository, triggerSvc TriggerService, orderSvc OrderService) EntryService {
	return &entryService{
		cfg:        cfg,
		log:        log,
		lotRepo:    lotRepo,
		triggerSvc: triggerSvc,
		orderSvc:   orderSvc,
	}
}

func (s *entryService) EvaluateSignal(quote *dto.Quote, item *model.WatchlistItem, now time.Time) (model.EntryType, bool) {
	if item.ReferencePrice <= 0 || quote.CurrentPrice <= 0 {
		return "", false
	}

	if InMarketOpenMinute(now) && quote.OpenPrice > item.ReferencePrice {
		return model.EntryTypeGapUp, true
	}
	if EntryAllowed(now) && quote.CurrentPrice >= item.ReferencePrice {
		return model.EntryTypeBreakout, true
	}
	return "", false
}

type entryDetail struct {
	Session        Session `json:"session"`
	ReferencePrice float64 `json:"reference_price"`
	CurrentPrice   float64 `json:"current_price"`
	OpenPrice      float64 `json:"open_price"`
}

func (s *entryService) TryEnter(ctx context.Context, quote *dto.Quote, item *model.WatchlistItem, now time.Time) error {
	entryType, ok := s.EvaluateSignal(quote, item, now)
	if !ok {
		return nil
	}

	session := CurrentSession(now)
	if session == "" && entryType == model.EntryTypeGapUp {
		session = SessionMorning
	}
	if session == "" {
		return fmt.Errorf("%w: entry for %s at %s", ErrOutsideWindow, item.StockCode, now.Format("15:04:05"))
	}

	attempted, err := s.triggerSvc.Attempted(ctx, item.StockCode)
	if err != nil {
		return fmt.Errorf("failed to check trigger state for %s: %w", item.StockCode, err)
	}
	if attempted {
		return nil
	}

	// An already-held symbol grows only through the close engine's pyramid
	// pass; a fresh entry on top of carried lots would bypass the cap.
	held, err := s.openQuantity(ctx, item.StockCode)
	if err != nil {
		return fmt.Errorf("failed to check open lots for %s: %w", item.StockCode, err)
	}
	if held > 0 {
		s.log.DebugContext(ctx, "Entry skipped, symbol already held",
			logger.StringField("stock_code", item.StockCode),
			logger.IntField("open_qty", int(held)),
		)
		return nil
	}

	detail, _ := json.Marshal(entryDetail{
		Session:        session,
		ReferencePrice: item.ReferencePrice,
		CurrentPrice:   quote.CurrentPrice,
		OpenPrice:      quote.OpenPrice,
	})

	entry, err := s.triggerSvc.Register(ctx, item.StockCode, entryType, detail)
	if err != nil {
		if errors.Is(err, ErrDuplicateTrigger) {
			return nil
		}
		return err
	}

	s.log.InfoContext(ctx, "Entry signal",
		logger.StringField("stock_code", item.StockCode),
		logger.StringField("entry_type", string(entryType)),
		logger.StringField("session", string(session)),
		logger.Float64Field("reference_price", item.ReferencePrice),
		logger.Float64Field("current_price", quote.CurrentPrice),
	)

	if quote.FetchedAt.Before(now.Add(-s.cfg.Monitor.StaleTriggerTimeout)) {
		resolveErr := s.triggerSvc.Resolve(ctx, entry, model.TriggerStatusPriceFailed, nil, "")
		if resolveErr != nil {
			return resolveErr
		}
		return fmt.Errorf("%w: stale quote for %s", repository.ErrPriceUnavailable, item.StockCode)
	}

	// A first entry in the evening session buys the full unit up front; the
	// pyramiding half would otherwise never get its chance before the close.
	units := 1.0
	if session == SessionEvening {
		units = 2.0
	}
	if units > item.MaxUnits*2 {
		units = item.MaxUnits * 2
	}

	result, err := s.orderSvc.ExecuteBuy(ctx, item.StockCode, item.ReferencePrice, units, string(entryType))
	if err != nil {
		status := model.TriggerStatusOrderFailed
		if errors.Is(err, repository.ErrPriceUnavailable) {
			status = model.TriggerStatusPriceFailed
		}
		if resolveErr := s.triggerSvc.Resolve(ctx, entry, status, nil, ""); resolveErr != nil {
			s.log.ErrorContext(ctx, "Failed to resolve trigger after order failure",
				logger.ErrorField(resolveErr),
				logger.StringField("stock_code", item.StockCode),
			)
		}
		return err
	}

	return s.triggerSvc.Resolve(ctx, entry, model.TriggerStatusSuccess, utils.ToPointer(result.LimitPrice), result.OrderNo)
}

// openQuantity sums the symbol's open lot quantities across credit classes.
func (s *entryService) openQuantity(ctx context.Context, stockCode string) (int64, error) {
	open := false
	lots, err := s.lotRepo.Get(ctx, model.GetLotsParam{StockCode: stockCode, IsClosed: &open})
	if err != nil {
		return 0, err
	}
	var qty int64
	for _, lot := range lots {
		qty += lot.NetQuantity
	}
	return qty, nil
}
