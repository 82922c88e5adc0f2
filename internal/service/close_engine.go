package service

import (
	"context"
	"fmt"
	"sync"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/market"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// CloseAction is the end-of-day decision for one position.
type CloseAction string

const (
	ActionHold     CloseAction = ""
	ActionPyramid  CloseAction = "pyramid"
	ActionSell     CloseAction = "sold"
	ActionStopLoss CloseAction = "close_stop_loss"
)

// StopScope says which part of a position a stop-loss sell covers.
type StopScope string

const (
	StopScopeNone  StopScope = ""
	StopScopeToday StopScope = "today"
	StopScopeAll   StopScope = "all"
)

// Position aggregates a symbol's open lots for decision making. TodayQty and
// TodayAvgPrice cover only lots opened this trading day; lots carries the
// open lots newest-first for sell routing.
type Position struct {
	StockCode     string
	StockName     string
	TotalQty      int64
	AvgPrice      float64
	TodayQty      int64
	TodayAvgPrice float64
	StopLossPct   float64
	lots          []model.Lot
}

// CloseEngine runs the stop-loss and end-of-day passes over open positions.
// The stop-loss pass covers every position all day; the close pass runs only
// in the window before the NXT close and touches today's entries.
type CloseEngine interface {
	// Positions builds the aggregated open positions from the lot ledger.
	Positions(ctx context.Context) ([]Position, error)
	// RunStopLossPass sells any position whose quote breaches its stop.
	RunStopLossPass(ctx context.Context, quotes map[string]*dto.Quote) ([]string, error)
	// RunClosePass applies the end-of-day rules: stop-loss first for all
	// positions, then pyramid-or-sell for today's entries.
	RunClosePass(ctx context.Context, quotes map[string]*dto.Quote) (map[string]CloseAction, error)
	// ResetDay clears the engine's acted-on memo at a day boundary.
	ResetDay()
}

type closeEngine struct {
	cfg           *config.Config
	log           *logger.Logger
	lotRepo       repository.LotRepository
	watchlistRepo repository.WatchlistRepository
	paramRepo     repository.SystemParamRepository
	triggerSvc    TriggerService
	orderSvc      OrderService
	venueSvc      VenueService

	mu    sync.Mutex
	acted map[string]CloseAction
}

func NewCloseEngine(
	cfg *config.Config,
	log *logger.Logger,
	lotRepo repository.LotRepository,
	watchlistRepo repository.WatchlistRepository,
	paramRepo repository.SystemParamRepository,
	triggerSvc TriggerService,
	orderSvc OrderService,
	venueSvc VenueService,
) CloseEngine {
	return &closeEngine{
		cfg:           cfg,
		log:           log,
		lotRepo:       lotRepo,
		watchlistRepo: watchlistRepo,
		paramRepo:     paramRepo,
		triggerSvc:    triggerSvc,
		orderSvc:      orderSvc,
		venueSvc:      venueSvc,
		acted:         make(map[string]CloseAction),
	}
}

// EvaluateStop decides the stop-loss scope for a position. Today's buys are
// checked against their own entry price first so a fresh entry gone wrong is
// cut without liquidating an older profitable position.
func EvaluateStop(pos Position, currentPrice float64) (StopScope, int64) {
	if currentPrice <= 0 || pos.AvgPrice <= 0 {
		return StopScopeNone, 0
	}
	if pos.TodayQty > 0 && pos.TodayAvgPrice > 0 &&
		breachesStop(currentPrice, pos.TodayAvgPrice, pos.StopLossPct) {
		return StopScopeToday, pos.TodayQty
	}
	if breachesStop(currentPrice, pos.AvgPrice, pos.StopLossPct) {
		return StopScopeAll, pos.TotalQty
	}
	return StopScopeNone, 0
}

// breachesStop compares against the tick-exact stop level rather than a
// derived percentage, so the boundary price itself triggers.
func breachesStop(current, entry, stopPct float64) bool {
	return market.IsStopLossBreached(current, entry, stopPct)
}

// EvaluateClose decides the end-of-day action for a position. The stop check
// runs for every position; pyramid-or-sell only for today's entries, where a
// close at or below the entry price cuts the position.
func EvaluateClose(pos Position, currentPrice float64, enteredToday bool) CloseAction {
	if currentPrice <= 0 || pos.AvgPrice <= 0 {
		return ActionHold
	}
	if breachesStop(currentPrice, pos.AvgPrice, pos.StopLossPct) {
		return ActionStopLoss
	}
	if !enteredToday {
		return ActionHold
	}
	if currentPrice > pos.AvgPrice {
		return ActionPyramid
	}
	return ActionSell
}

func (e *closeEngine) Positions(ctx context.Context) ([]Position, error) {
	params, err := e.paramRepo.GetTradingParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading params: %w", err)
	}

	open := false
	lots, err := e.lotRepo.Get(ctx, model.GetLotsParam{IsClosed: &open})
	if err != nil {
		return nil, fmt.Errorf("failed to load open lots: %w", err)
	}

	today := TradingDayOf(utils.TimeNowKST())

	index := make(map[string]*Position)
	var ordered []*Position
	for _, lot := range lots {
		if lot.NetQuantity <= 0 {
			continue
		}
		pos, ok := index[lot.StockCode]
		if !ok {
			pos = &Position{
				StockCode:   lot.StockCode,
				StockName:   lot.StockName,
				StopLossPct: params.StopLossPct,
			}
			index[lot.StockCode] = pos
			ordered = append(ordered, pos)
		}
		pos.TotalQty += lot.NetQuantity
		pos.AvgPrice += lot.AvgPurchasePrice * float64(lot.NetQuantity)
		if lot.TradeDate.Equal(today) {
			pos.TodayQty += lot.NetQuantity
			pos.TodayAvgPrice += lot.AvgPurchasePrice * float64(lot.NetQuantity)
		}
		pos.lots = append(pos.lots, lot)
	}

	positions := make([]Position, 0, len(ordered))
	for _, pos := range ordered {
		if pos.TotalQty > 0 {
			pos.AvgPrice /= float64(pos.TotalQty)
		}
		if pos.TodayQty > 0 {
			pos.TodayAvgPrice /= float64(pos.TodayQty)
		}
		if item, err := e.watchlistRepo.FindByCode(ctx, pos.StockCode); err == nil && item != nil && item.StopLossPct != nil {
			pos.StopLossPct = *item.StopLossPct
		}
		positions = append(positions, *pos)
	}
	return positions, nil
}

func (e *closeEngine) RunStopLossPass(ctx context.Context, quotes map[string]*dto.Quote) ([]string, error) {
	positions, err := e.Positions(ctx)
	if err != nil {
		return nil, err
	}

	var stopped []string
	for _, pos := range positions {
		quote, ok := quotes[pos.StockCode]
		if !ok || quote == nil {
			continue
		}
		if e.alreadyActed(pos.StockCode) {
			continue
		}

		scope, qty := EvaluateStop(pos, quote.CurrentPrice)
		if scope == StopScopeNone {
			continue
		}

		e.log.WarnContext(ctx, "Stop loss triggered",
			logger.StringField("stock_code", pos.StockCode),
			logger.StringField("scope", string(scope)),
			logger.IntField("quantity", int(qty)),
			logger.Float64Field("current_price", quote.CurrentPrice),
			logger.Float64Field("avg_price", pos.AvgPrice),
		)

		todayOnly := scope == StopScopeToday
		if err := e.sellPosition(ctx, pos, qty, quote.CurrentPrice, todayOnly, "stop_loss_"+string(scope)); err != nil {
			e.log.ErrorContextWithAlert(ctx, "Stop loss sell failed",
				logger.ErrorField(err),
				logger.StringField("stock_code", pos.StockCode),
			)
			continue
		}
		e.markActed(pos.StockCode, ActionStopLoss)
		stopped = append(stopped, pos.StockCode)
	}
	return stopped, nil
}

func (e *closeEngine) RunClosePass(ctx context.Context, quotes map[string]*dto.Quote) (map[string]CloseAction, error) {
	positions, err := e.Positions(ctx)
	if err != nil {
		return nil, err
	}

	todayEntries, err := e.triggerSvc.SuccessfulToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's entries: %w", err)
	}
	enteredToday := make(map[string]struct{}, len(todayEntries))
	for _, t := range todayEntries {
		enteredToday[t.StockCode] = struct{}{}
	}

	krxWindow := InKRXCloseWindow(utils.TimeNowKST())

	actions := make(map[string]CloseAction)
	for _, pos := range positions {
		quote, ok := quotes[pos.StockCode]
		if !ok || quote == nil {
			continue
		}
		if e.alreadyActed(pos.StockCode) {
			continue
		}
		tradable := e.venueSvc.TradableOnSecondary(ctx, pos.StockCode)
		if !closesInWindow(krxWindow, tradable) {
			continue
		}

		_, isToday := enteredToday[pos.StockCode]
		action := EvaluateClose(pos, quote.CurrentPrice, isToday)
		if action == ActionHold {
			continue
		}

		e.log.InfoContext(ctx, "Close decision",
			logger.StringField("stock_code", pos.StockCode),
			logger.StringField("action", string(action)),
			logger.Float64Field("current_price", quote.CurrentPrice),
			logger.Float64Field("avg_price", pos.AvgPrice),
		)

		switch action {
		case ActionPyramid:
			if !e.canPyramid(ctx, pos) {
				continue
			}
			if _, err := e.orderSvc.ExecuteBuy(ctx, pos.StockCode, quote.CurrentPrice, 1.0, string(ActionPyramid)); err != nil {
				e.log.ErrorContextWithAlert(ctx, "Pyramid buy failed",
					logger.ErrorField(err),
					logger.StringField("stock_code", pos.StockCode),
				)
				continue
			}
		case ActionSell, ActionStopLoss:
			if err := e.sellPosition(ctx, pos, pos.TotalQty, quote.CurrentPrice, false, string(action)); err != nil {
				e.log.ErrorContextWithAlert(ctx, "Close sell failed",
					logger.ErrorField(err),
					logger.StringField("stock_code", pos.StockCode),
				)
				continue
			}
		}
		e.markActed(pos.StockCode, action)
		actions[pos.StockCode] = action
	}
	return actions, nil
}

// closesInWindow says which window a symbol's close pass belongs to:
// secondary-tradable symbols wait for the late window, the rest must act
// before the KRX closing auction.
func closesInWindow(krxWindow, tradableOnSecondary bool) bool {
	if krxWindow {
		return !tradableOnSecondary
	}
	return tradableOnSecondary
}

// canPyramid enforces the cumulative position cap: a symbol already holding
// its max_units worth gets no pyramid buy.
func (e *closeEngine) canPyramid(ctx context.Context, pos Position) bool {
	params, err := e.paramRepo.GetTradingParams(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to load trading params for pyramid check", logger.ErrorField(err))
		return false
	}
	summary, err := e.orderSvc.AccountSummary(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to load account summary for pyramid check", logger.ErrorField(err))
		return false
	}

	maxUnits := 1.0
	if item, err := e.watchlistRepo.FindByCode(ctx, pos.StockCode); err == nil && item != nil && item.MaxUnits > 0 {
		maxUnits = item.MaxUnits
	}

	unitValue := market.UnitValue(summary.NetAssets, params.UnitPct)
	held := market.HeldUnits(pos.AvgPrice*float64(pos.TotalQty), unitValue)
	if held >= maxUnits {
		e.log.InfoContext(ctx, "Pyramid skipped, position at max units",
			logger.StringField("stock_code", pos.StockCode),
			logger.Float64Field("held_units", held),
			logger.Float64Field("max_units", maxUnits),
		)
		return false
	}
	return true
}

// sellPosition routes sells per (credit class, loan date) slice, newest lots
// first, so credit repayments carry the right loan date.
func (e *closeEngine) sellPosition(ctx context.Context, pos Position, qty int64, currentPrice float64, todayOnly bool, reason string) error {
	today := TradingDayOf(utils.TimeNowKST())

	type sliceKey struct {
		credit   model.CreditClass
		loanDate string
	}
	sliceQty := make(map[sliceKey]int64)
	var orderedKeys []sliceKey

	remaining := qty
	for _, lot := range pos.lots { // newest-first from the repository
		if remaining <= 0 {
			break
		}
		if todayOnly && !lot.TradeDate.Equal(today) {
			continue
		}
		take := lot.NetQuantity
		if take > remaining {
			take = remaining
		}
		k := sliceKey{credit: lot.CreditClass, loanDate: lot.LoanDate}
		if _, ok := sliceQty[k]; !ok {
			orderedKeys = append(orderedKeys, k)
		}
		sliceQty[k] += take
		remaining -= take
	}
	if remaining > 0 {
		return fmt.Errorf("%w: %s sell of %d exceeds tracked lots by %d", ErrLedgerDesync, pos.StockCode, qty, remaining)
	}

	for _, k := range orderedKeys {
		loanDate := ""
		if k.credit == model.CreditClassCredit {
			loanDate = k.loanDate
		}
		if _, err := e.orderSvc.ExecuteSell(ctx, pos.StockCode, sliceQty[k], currentPrice, loanDate, reason); err != nil {
			return err
		}
	}
	return nil
}

func (e *closeEngine) alreadyActed(stockCode string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.acted[stockCode]
	return ok
}

func (e *closeEngine) markActed(stockCode string, action CloseAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acted[stockCode] = action
}

func (e *closeEngine) ResetDay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acted = make(map[string]CloseAction)
}
