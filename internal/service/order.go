package service

import (
	"context"
	"errors"
	"fmt"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/market"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/cache"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/telegram"
	"krx-autotrade/pkg/utils"
)

const cacheKeyAccountSummary = "kiwoom:account_summary"

// OrderService sizes and places orders. Buys are credit-first: a credit-line
// rejection falls back to a cash order at the same price and size, after the
// leverage gate passes a second time.
type OrderService interface {
	// ExecuteBuy places a half-unit buy at referencePrice plus the tick
	// buffer. The units multiplier scales the half unit (evening first
	// entries buy a full unit).
	ExecuteBuy(ctx context.Context, stockCode string, referencePrice float64, units float64, reason string) (*dto.OrderResult, error)
	// ExecuteSell places a sell below currentPrice by the tick buffer. A
	// non-empty creditLoanDate routes the order as a credit repayment.
	ExecuteSell(ctx context.Context, stockCode string, quantity int64, currentPrice float64, creditLoanDate string, reason string) (*dto.OrderResult, error)
	// AccountSummary returns the cached sizing inputs.
	AccountSummary(ctx context.Context) (*dto.AccountSummary, error)
}

type orderService struct {
	cfg           *config.Config
	log           *logger.Logger
	kiwoomRepo    repository.KiwoomRepository
	paramRepo     repository.SystemParamRepository
	inmemoryCache cache.Cache
	notifier      *telegram.Notifier
}

func NewOrderService(
	cfg *config.Config,
	log *logger.Logger,
	kiwoomRepo repository.KiwoomRepository,
	paramRepo repository.SystemParamRepository,
	inmemoryCache cache.Cache,
	notifier *telegram.Notifier,
) OrderService {
	return &orderService{
		cfg:           cfg,
		log:           log,
		kiwoomRepo:    kiwoomRepo,
		paramRepo:     paramRepo,
		inmemoryCache: inmemoryCache,
		notifier:      notifier,
	}
}

func (s *orderService) AccountSummary(ctx context.Context) (*dto.AccountSummary, error) {
	if cached, found := cache.GetTyped[*dto.AccountSummary](s.inmemoryCache, cacheKeyAccountSummary); found {
		return cached, nil
	}
	summary, err := s.kiwoomRepo.GetAccountSummary(ctx)
	if err != nil {
		return nil, err
	}
	s.inmemoryCache.Set(cacheKeyAccountSummary, summary, s.cfg.Monitor.UnitValueCacheTTL)
	return summary, nil
}

func (s *orderService) ExecuteBuy(ctx context.Context, stockCode string, referencePrice float64, units float64, reason string) (*dto.OrderResult, error) {
	params, err := s.paramRepo.GetTradingParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading params: %w", err)
	}

	summary, err := s.AccountSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account summary: %w", err)
	}

	buyPrice := market.BuyOrderPrice(referencePrice, params.TickBuffer)
	amount := market.HalfUnitAmount(summary.NetAssets, params.UnitPct) * units
	quantity := market.OrderQuantity(amount, buyPrice)
	if quantity <= 0 {
		return nil, fmt.Errorf("order amount %.0f cannot buy one share of %s at %.0f", amount, stockCode, buyPrice)
	}

	sizing := market.SizingParams{
		NetAssets:    summary.NetAssets,
		TotalPayable: summary.TotalPurchase,
		UnitPct:      params.UnitPct,
		MaxLevPct:    params.MaxLeveragePct,
	}
	orderAmount := buyPrice * float64(quantity)
	if !market.CheckLeverage(sizing, orderAmount) {
		s.log.WarnContext(ctx, "Buy rejected by leverage gate",
			logger.StringField("stock_code", stockCode),
			logger.Float64Field("order_amount", orderAmount),
			logger.Float64Field("total_payable", summary.TotalPurchase),
			logger.Float64Field("net_assets", summary.NetAssets),
		)
		return nil, fmt.Errorf("%w: %s amount %.0f", ErrLeverageExceeded, stockCode, orderAmount)
	}

	result, err := s.kiwoomRepo.PlaceBuyOrder(ctx, stockCode, quantity, buyPrice, true)
	if errors.Is(err, repository.ErrCreditLimit) {
		s.log.WarnContext(ctx, "Credit line exhausted, retrying as cash order",
			logger.StringField("stock_code", stockCode),
			logger.ErrorField(err),
		)
		s.notifier.Send(ctx, fmt.Sprintf("💳 %s 신용한도 초과, 현금매수 전환", stockCode))
		result, err = s.kiwoomRepo.PlaceBuyOrder(ctx, stockCode, quantity, buyPrice, false)
	}
	if err != nil {
		return nil, err
	}

	// The fill invalidates the cached account figures.
	s.inmemoryCache.Delete(cacheKeyAccountSummary)

	orderType := model.CreditClassCash
	if result.UsedCredit {
		orderType = model.CreditClassCredit
	}
	s.log.InfoContext(ctx, "Buy order placed",
		logger.StringField("stock_code", stockCode),
		logger.StringField("order_no", result.OrderNo),
		logger.IntField("quantity", int(quantity)),
		logger.Float64Field("price", buyPrice),
		logger.StringField("credit_class", string(orderType)),
		logger.StringField("reason", reason),
	)
	s.notifier.Send(ctx, fmt.Sprintf("🟢 매수 %s %d주 @%.0f (%s) %s", stockCode, quantity, buyPrice, orderType, reason))

	return result, nil
}

func (s *orderService) ExecuteSell(ctx context.Context, stockCode string, quantity int64, currentPrice float64, creditLoanDate string, reason string) (*dto.OrderResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid sell quantity %d for %s", quantity, stockCode)
	}

	params, err := s.paramRepo.GetTradingParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading params: %w", err)
	}

	sellPrice := market.SellOrderPrice(currentPrice, params.TickBuffer)
	if InNXTOnlyHours(utils.TimeNowKST()) {
		if floor := market.VenueFloorPrice(currentPrice); sellPrice < floor {
			sellPrice = floor
		}
	}
	result, err := s.kiwoomRepo.PlaceSellOrder(ctx, stockCode, quantity, sellPrice, creditLoanDate)
	if err != nil {
		return nil, err
	}

	s.inmemoryCache.Delete(cacheKeyAccountSummary)

	s.log.InfoContext(ctx, "Sell order placed",
		logger.StringField("stock_code", stockCode),
		logger.StringField("order_no", result.OrderNo),
		logger.IntField("quantity", int(quantity)),
		logger.Float64Field("price", sellPrice),
		logger.StringField("reason", reason),
	)
	s.notifier.Send(ctx, fmt.Sprintf("🔴 매도 %s %d주 @%.0f %s", stockCode, quantity, sellPrice, reason))

	return result, nil
}
