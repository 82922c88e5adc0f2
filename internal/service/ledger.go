package service

import (
	"context"
	"fmt"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/telegram"
	"krx-autotrade/pkg/utils"
)

// LedgerService maintains the daily-net lot ledger. One lot aggregates the
// day's net purchase per (symbol, credit class, loan date); sells beyond the
// same day's buys reduce earlier lots newest-first.
type LedgerService interface {
	// ApplyDailyNetDelta folds one day's fills into the ledger.
	ApplyDailyNetDelta(ctx context.Context, tradeDate time.Time) error
	// RebuildRange deletes lots in [from, to] and replays the fills day by
	// day. Lots before the range are left untouched and still absorb LIFO
	// reductions during the replay.
	RebuildRange(ctx context.Context, from, to time.Time) error
	// RefreshMetrics recomputes holding days and unrealized P&L for all open
	// lots. Safe to run repeatedly.
	RefreshMetrics(ctx context.Context, today time.Time) (int, error)
	// Reconcile compares the ledger against a holdings snapshot and patches
	// differences, alerting on every divergence it finds.
	Reconcile(ctx context.Context, date time.Time) error
}

type ledgerService struct {
	cfg         *config.Config
	log         *logger.Logger
	lotRepo     repository.LotRepository
	fillRepo    repository.TradeFillRepository
	holdingRepo repository.HoldingRepository
	uow         repository.UnitOfWork
	notifier    *telegram.Notifier
}

func NewLedgerService(
	cfg *config.Config,
	log *logger.Logger,
	lotRepo repository.LotRepository,
	fillRepo repository.TradeFillRepository,
	holdingRepo repository.HoldingRepository,
	uow repository.UnitOfWork,
	notifier *telegram.Notifier,
) LedgerService {
	return &ledgerService{
		cfg:         cfg,
		log:         log,
		lotRepo:     lotRepo,
		fillRepo:    fillRepo,
		holdingRepo: holdingRepo,
		uow:         uow,
		notifier:    notifier,
	}
}

// fillGroup is one day's fills for a single lot key.
type fillGroup struct {
	key       model.LotKey
	tradeDate time.Time
	stockName string
	fills     []model.TradeFill
}

func (g *fillGroup) totals() (buyQty, sellQty int64, buyValue, sellValue float64) {
	for _, f := range g.fills {
		switch {
		case f.IsBuy():
			buyQty += f.Quantity
			buyValue += float64(f.Quantity) * f.Price
		case f.IsSell():
			sellQty += f.Quantity
			sellValue += float64(f.Quantity) * f.Price
		}
	}
	return
}

func (s *ledgerService) ApplyDailyNetDelta(ctx context.Context, tradeDate time.Time) error {
	tradeDate = utils.DateOf(tradeDate)

	fills, err := s.fillRepo.Get(ctx, model.GetTradeFillsParam{DateFrom: &tradeDate, DateTo: &tradeDate})
	if err != nil {
		return fmt.Errorf("failed to load fills for %s: %w", tradeDate.Format("2006-01-02"), err)
	}
	if len(fills) == 0 {
		s.log.DebugContext(ctx, "No fills to apply", logger.StringField("trade_date", tradeDate.Format("2006-01-02")))
		return nil
	}

	groups := groupFills(fills)
	s.log.InfoContext(ctx, "Applying daily net delta",
		logger.StringField("trade_date", tradeDate.Format("2006-01-02")),
		logger.IntField("fill_count", len(fills)),
		logger.IntField("group_count", len(groups)),
	)

	for _, g := range groups {
		if !utils.ShouldContinue(ctx, s.log) {
			return ctx.Err()
		}
		if err := s.applyGroup(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func groupFills(fills []model.TradeFill) []*fillGroup {
	type groupKey struct {
		key  model.LotKey
		date time.Time
	}
	index := make(map[groupKey]*fillGroup)
	var ordered []*fillGroup

	for _, f := range fills {
		k := groupKey{key: f.Key(), date: f.TradeDate}
		g, ok := index[k]
		if !ok {
			g = &fillGroup{key: k.key, tradeDate: f.TradeDate, stockName: f.StockName}
			index[k] = g
			ordered = append(ordered, g)
		}
		g.fills = append(g.fills, f)
	}
	return ordered
}

// applyGroup nets one group's buys against its sells and writes the result
// in a single transaction.
func (s *ledgerService) applyGroup(ctx context.Context, g *fillGroup) error {
	buyQty, sellQty, buyValue, sellValue := g.totals()

	return s.uow.Run(func(opts ...utils.DBOption) error {
		existing, err := s.openLotsForKey(ctx, g.key, g.tradeDate, opts...)
		if err != nil {
			return err
		}

		var existingQty int64
		for _, lot := range existing {
			existingQty += lot.NetQuantity
		}

		netBuy := buyQty - sellQty
		if existingQty > 0 && sellQty > 0 {
			// Sells close earlier lots first; only the remainder offsets
			// today's buys.
			closeQty := sellQty
			if closeQty > existingQty {
				closeQty = existingQty
			}
			avgSell := 0.0
			if sellQty > 0 {
				avgSell = sellValue / float64(sellQty)
			}
			reduced, remaining := ReduceLotsLIFO(existing, closeQty, g.tradeDate, avgSell)
			for i := range reduced {
				if err := s.lotRepo.Update(ctx, &reduced[i], opts...); err != nil {
					return fmt.Errorf("failed to reduce lot %d: %w", reduced[i].ID, err)
				}
			}
			netBuy = buyQty - (sellQty - closeQty + remaining)
		}

		if netBuy > 0 {
			avgPrice := 0.0
			if buyQty > 0 {
				avgPrice = buyValue / float64(buyQty)
			}
			lot := &model.Lot{
				StockCode:        g.key.StockCode,
				StockName:        g.stockName,
				CreditClass:      g.key.CreditClass,
				LoanDate:         g.key.LoanDate,
				TradeDate:        g.tradeDate,
				NetQuantity:      netBuy,
				AvgPurchasePrice: avgPrice,
				TotalCost:        avgPrice * float64(netBuy),
				Source:           model.LotSourceTradeSync,
			}
			if err := s.lotRepo.Upsert(ctx, lot, opts...); err != nil {
				return fmt.Errorf("failed to upsert lot for %s: %w", g.key.StockCode, err)
			}
		} else if netBuy < 0 {
			// A manual sell the ledger cannot account for. Never dropped
			// silently; the next reconcile settles the quantity against the
			// brokerage snapshot.
			s.log.ErrorContextWithAlert(ctx, "Sell quantity exceeds tracked lots",
				logger.ErrorField(ErrLedgerDesync),
				logger.StringField("stock_code", g.key.StockCode),
				logger.IntField("untracked_qty", int(-netBuy)),
			)
			s.notifier.Send(ctx, fmt.Sprintf("⚠️ 원장 불일치 %s: 추적되지 않은 매도 %d주", g.key.StockCode, -netBuy))
		}
		return nil
	})
}

// openLotsForKey resolves the lots a reduction may touch. A generic credit
// loan date matches every open credit lot of the symbol.
func (s *ledgerService) openLotsForKey(ctx context.Context, key model.LotKey, before time.Time, opts ...utils.DBOption) ([]model.Lot, error) {
	if key.CreditClass == model.CreditClassCredit && key.LoanDate == model.GenericCreditLoanDate {
		return s.lotRepo.GetOpenGenericCredit(ctx, key.StockCode, before, opts...)
	}
	return s.lotRepo.GetOpenForReduction(ctx, key, before, opts...)
}

// ReduceLotsLIFO walks lots newest-first, closing or shrinking them until
// qty is consumed. Returns the mutated lots and any unconsumed quantity.
func ReduceLotsLIFO(lots []model.Lot, qty int64, closeDate time.Time, sellPrice float64) ([]model.Lot, int64) {
	remaining := qty
	var touched []model.Lot

	for i := range lots {
		if remaining <= 0 {
			break
		}
		lot := lots[i]

		reduceBy := lot.NetQuantity
		if reduceBy > remaining {
			reduceBy = remaining
		}

		if sellPrice > 0 {
			lot.RealizedPnl += (sellPrice - lot.AvgPurchasePrice) * float64(reduceBy)
		}
		lot.NetQuantity -= reduceBy
		lot.TotalCost = lot.AvgPurchasePrice * float64(lot.NetQuantity)
		if lot.NetQuantity == 0 {
			lot.IsClosed = true
			closed := closeDate
			lot.ClosedDate = &closed
		}

		remaining -= reduceBy
		touched = append(touched, lot)
	}
	return touched, remaining
}

func (s *ledgerService) RebuildRange(ctx context.Context, from, to time.Time) error {
	from = utils.DateOf(from)
	to = utils.DateOf(to)
	if to.Before(from) {
		return fmt.Errorf("invalid rebuild range: %s after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	deleted, err := s.lotRepo.DeleteByTradeDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to clear lots for rebuild: %w", err)
	}
	s.log.InfoContext(ctx, "Rebuilding lot ledger",
		logger.StringField("from", from.Format("2006-01-02")),
		logger.StringField("to", to.Format("2006-01-02")),
		logger.IntField("deleted_lots", int(deleted)),
	)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !utils.ShouldContinue(ctx, s.log) {
			return ctx.Err()
		}
		if err := s.ApplyDailyNetDelta(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

func (s *ledgerService) RefreshMetrics(ctx context.Context, today time.Time) (int, error) {
	today = utils.DateOf(today)

	holdings, err := s.holdingRepo.GetByDate(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load holdings for metric refresh: %w", err)
	}

	type priceKey struct {
		code   string
		credit model.CreditClass
	}
	prices := make(map[priceKey]float64, len(holdings))
	for _, h := range holdings {
		if h.CurrentPrice > 0 {
			prices[priceKey{h.StockCode, h.CreditClass}] = h.CurrentPrice
		}
	}

	open := false
	lots, err := s.lotRepo.Get(ctx, model.GetLotsParam{IsClosed: &open})
	if err != nil {
		return 0, fmt.Errorf("failed to load open lots: %w", err)
	}

	updated := 0
	for i := range lots {
		lot := &lots[i]

		lot.HoldingDays = utils.TradingDaysBetween(lot.TradeDate, today)

		if cur, ok := prices[priceKey{lot.StockCode, lot.CreditClass}]; ok {
			pnl := (cur - lot.AvgPurchasePrice) * float64(lot.NetQuantity)
			pct := 0.0
			if lot.AvgPurchasePrice > 0 {
				pct = (cur - lot.AvgPurchasePrice) / lot.AvgPurchasePrice * 100
			}
			lot.CurrentPrice = &cur
			lot.UnrealizedPnl = &pnl
			lot.UnrealizedReturnPct = &pct
		}

		if err := s.lotRepo.Update(ctx, lot); err != nil {
			return updated, fmt.Errorf("failed to update lot %d metrics: %w", lot.ID, err)
		}
		updated++
	}

	s.log.InfoContext(ctx, "Lot metrics refreshed", logger.IntField("updated", updated))
	return updated, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, date time.Time) error {
	date = utils.DateOf(date)

	holdings, err := s.holdingRepo.GetByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load holdings for reconcile: %w", err)
	}

	open := false
	lots, err := s.lotRepo.Get(ctx, model.GetLotsParam{IsClosed: &open})
	if err != nil {
		return fmt.Errorf("failed to load open lots for reconcile: %w", err)
	}

	lotQty := make(map[model.LotKey]int64)
	for _, lot := range lots {
		lotQty[lot.Key()] += lot.NetQuantity
	}

	heldQty := make(map[model.LotKey]int64, len(holdings))
	holdingByKey := make(map[model.LotKey]model.HoldingSnapshot, len(holdings))
	for _, h := range holdings {
		k := model.LotKey{StockCode: h.StockCode, CreditClass: h.CreditClass, LoanDate: h.LoanDate}
		heldQty[k] += h.Quantity
		holdingByKey[k] = h
	}

	for key, held := range heldQty {
		diff := held - lotQty[key]
		if diff == 0 {
			continue
		}
		if err := s.patchDivergence(ctx, date, key, diff, holdingByKey[key]); err != nil {
			return err
		}
	}

	// Lots the brokerage no longer reports at all.
	for key, qty := range lotQty {
		if qty <= 0 {
			continue
		}
		if _, held := heldQty[key]; !held {
			if err := s.patchDivergence(ctx, date, key, -qty, model.HoldingSnapshot{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ledgerService) patchDivergence(ctx context.Context, date time.Time, key model.LotKey, diff int64, holding model.HoldingSnapshot) error {
	s.log.ErrorContextWithAlert(ctx, "Lot ledger out of sync with holdings",
		logger.StringField("stock_code", key.StockCode),
		logger.StringField("credit_class", string(key.CreditClass)),
		logger.StringField("loan_date", key.LoanDate),
		logger.IntField("diff_qty", int(diff)),
	)
	s.notifier.Send(ctx, fmt.Sprintf("⚠️ 원장 불일치 %s (%s): %+d주 보정", key.StockCode, key.CreditClass, diff))

	if diff > 0 {
		// Brokerage reports more than the ledger tracks, usually a manual
		// buy. Fold the surplus into today's lot when one exists so the
		// synced quantity is not clobbered; otherwise record a
		// reconcile-sourced lot.
		existing, err := s.lotRepo.FindByKeyAndDate(ctx, key, date)
		if err != nil {
			return err
		}
		if existing != nil && !existing.IsClosed {
			cost := existing.TotalCost + holding.AvgPrice*float64(diff)
			existing.NetQuantity += diff
			existing.TotalCost = cost
			if existing.NetQuantity > 0 {
				existing.AvgPurchasePrice = cost / float64(existing.NetQuantity)
			}
			return s.lotRepo.Update(ctx, existing)
		}
		lot := &model.Lot{
			StockCode:        key.StockCode,
			StockName:        holding.StockName,
			CreditClass:      key.CreditClass,
			LoanDate:         key.LoanDate,
			TradeDate:        date,
			NetQuantity:      diff,
			AvgPurchasePrice: holding.AvgPrice,
			TotalCost:        holding.AvgPrice * float64(diff),
			Source:           model.LotSourceReconcile,
		}
		return s.lotRepo.Upsert(ctx, lot)
	}

	// Ledger tracks more than the brokerage holds, usually a manual sell.
	return s.uow.Run(func(opts ...utils.DBOption) error {
		cutoff := date.AddDate(0, 0, 1)
		lots, err := s.openLotsForKey(ctx, key, cutoff, opts...)
		if err != nil {
			return err
		}
		reduced, remaining := ReduceLotsLIFO(lots, -diff, date, 0)
		for i := range reduced {
			if err := s.lotRepo.Update(ctx, &reduced[i], opts...); err != nil {
				return err
			}
		}
		if remaining > 0 {
			return fmt.Errorf("%w: %s short by %d after reduction", ErrLedgerDesync, key.StockCode, remaining)
		}
		return nil
	})
}
