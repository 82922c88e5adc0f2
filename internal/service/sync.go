package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

func fillQuantity(s string) int64 {
	return dto.KiwoomInt(s)
}

func parsePrice(s string) float64 {
	return dto.KiwoomAbsPrice(s)
}

// The holdings API prefixes codes with "A"; the rest of the system uses the
// bare six-digit code.
func normalizeStockCode(code string) string {
	return strings.TrimPrefix(code, "A")
}

// SyncService pulls brokerage state into the local tables: executed fills
// into the trade history, reported holdings into the daily snapshot.
type SyncService interface {
	SyncTradeFills(ctx context.Context, date time.Time) (int64, error)
	SyncHoldings(ctx context.Context, date time.Time) (int, error)
}

type syncService struct {
	cfg         *config.Config
	log         *logger.Logger
	kiwoomRepo  repository.KiwoomRepository
	fillRepo    repository.TradeFillRepository
	holdingRepo repository.HoldingRepository
	uow         repository.UnitOfWork
}

func NewSyncService(
	cfg *config.Config,
	log *logger.Logger,
	kiwoomRepo repository.KiwoomRepository,
	fillRepo repository.TradeFillRepository,
	holdingRepo repository.HoldingRepository,
	uow repository.UnitOfWork,
) SyncService {
	return &syncService{
		cfg:         cfg,
		log:         log,
		kiwoomRepo:  kiwoomRepo,
		fillRepo:    fillRepo,
		holdingRepo: holdingRepo,
		uow:         uow,
	}
}

func (s *syncService) SyncTradeFills(ctx context.Context, date time.Time) (int64, error) {
	date = utils.DateOf(date)

	items, err := s.kiwoomRepo.GetTradeHistory(ctx, date.Format("20060102"))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch trade history: %w", err)
	}

	fills := make([]model.TradeFill, 0, len(items))
	for _, item := range items {
		qty := fillQuantity(item.Quantity)
		if item.OrderNo == "" || qty <= 0 {
			continue
		}
		creditClass := model.CreditClassCash
		loanDate := ""
		if item.LoanDate != "" {
			creditClass = model.CreditClassCredit
			loanDate = item.LoanDate
		}
		fills = append(fills, model.TradeFill{
			OrderNo:     item.OrderNo,
			StockCode:   normalizeStockCode(item.StockCode),
			StockName:   item.StockName,
			SideName:    item.SideName,
			CreditClass: creditClass,
			LoanDate:    loanDate,
			TradeDate:   date,
			OrderTime:   item.TradeTime,
			Quantity:    qty,
			Price:       parsePrice(item.UnitPrice),
		})
	}

	inserted, err := s.fillRepo.UpsertBatch(ctx, fills)
	if err != nil {
		return 0, fmt.Errorf("failed to store fills: %w", err)
	}

	s.log.InfoContext(ctx, "Trade fills synced",
		logger.StringField("date", date.Format("2006-01-02")),
		logger.IntField("fetched", len(items)),
		logger.IntField("new", int(inserted)),
	)
	return inserted, nil
}

func (s *syncService) SyncHoldings(ctx context.Context, date time.Time) (int, error) {
	date = utils.DateOf(date)

	items, err := s.kiwoomRepo.GetHoldings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	holdings := make([]model.HoldingSnapshot, 0, len(items))
	for _, item := range items {
		qty := fillQuantity(item.Quantity)
		if item.StockCode == "" || qty <= 0 {
			continue
		}
		creditClass := model.CreditClassCash
		loanDate := ""
		if item.LoanDate != "" || item.CreditType != "" {
			creditClass = model.CreditClassCredit
			loanDate = item.LoanDate
		}
		holdings = append(holdings, model.HoldingSnapshot{
			SnapshotDate: date,
			StockCode:    normalizeStockCode(item.StockCode),
			StockName:    item.StockName,
			CreditClass:  creditClass,
			LoanDate:     loanDate,
			Quantity:     qty,
			AvgPrice:     parsePrice(item.AvgPrice),
			CurrentPrice: parsePrice(item.CurrentPrice),
		})
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		return s.holdingRepo.ReplaceSnapshot(ctx, date, holdings, opts...)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replace holdings snapshot: %w", err)
	}

	s.log.InfoContext(ctx, "Holdings synced",
		logger.StringField("date", date.Format("2006-01-02")),
		logger.IntField("count", len(holdings)),
	)
	return len(holdings), nil
}
