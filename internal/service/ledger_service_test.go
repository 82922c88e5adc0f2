package service

import (
	"context"
	"testing"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/telegram"
	"krx-autotrade/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeLedgerLotRepo keeps lots in memory and writes updates back, so a
// second metric refresh starts from the first refresh's state.
type fakeLedgerLotRepo struct {
	repository.LotRepository
	lots    []model.Lot
	updates int
}

func (f *fakeLedgerLotRepo) Get(ctx context.Context, param model.GetLotsParam, opts ...utils.DBOption) ([]model.Lot, error) {
	out := make([]model.Lot, len(f.lots))
	copy(out, f.lots)
	return out, nil
}

func (f *fakeLedgerLotRepo) GetOpenForReduction(ctx context.Context, key model.LotKey, before time.Time, opts ...utils.DBOption) ([]model.Lot, error) {
	out := make([]model.Lot, len(f.lots))
	copy(out, f.lots)
	return out, nil
}

func (f *fakeLedgerLotRepo) Update(ctx context.Context, lot *model.Lot, opts ...utils.DBOption) error {
	f.updates++
	for i := range f.lots {
		if f.lots[i].ID == lot.ID {
			f.lots[i] = *lot
		}
	}
	return nil
}

type fakeHoldingRepo struct {
	repository.HoldingRepository
	holdings []model.HoldingSnapshot
}

func (f *fakeHoldingRepo) GetByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.HoldingSnapshot, error) {
	return f.holdings, nil
}

type fakeFillRepo struct {
	repository.TradeFillRepository
	fills []model.TradeFill
}

func (f *fakeFillRepo) Get(ctx context.Context, param model.GetTradeFillsParam, opts ...utils.DBOption) ([]model.TradeFill, error) {
	return f.fills, nil
}

type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}

func noopNotifier(t *testing.T) *telegram.Notifier {
	t.Helper()
	notifier, err := telegram.NewNotifier(&config.TelegramConfig{}, testLogger())
	require.NoError(t, err)
	return notifier
}

func TestRefreshMetricsIdempotent(t *testing.T) {
	today := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	lotRepo := &fakeLedgerLotRepo{lots: []model.Lot{
		lotOn(24, 10, 70000),
		lotOn(25, 5, 71000),
	}}
	holdingRepo := &fakeHoldingRepo{holdings: []model.HoldingSnapshot{
		{StockCode: "005930", CreditClass: model.CreditClassCash, Quantity: 15, CurrentPrice: 72000},
	}}

	svc := NewLedgerService(&config.Config{}, testLogger(), lotRepo, &fakeFillRepo{}, holdingRepo, fakeUnitOfWork{}, noopNotifier(t))

	updated, err := svc.RefreshMetrics(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	first := make([]model.Lot, len(lotRepo.lots))
	copy(first, lotRepo.lots)

	updated, err = svc.RefreshMetrics(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, first, lotRepo.lots)

	require.NotNil(t, lotRepo.lots[0].UnrealizedPnl)
	assert.Equal(t, float64(20000), *lotRepo.lots[0].UnrealizedPnl)
	require.NotNil(t, lotRepo.lots[1].UnrealizedPnl)
	assert.Equal(t, float64(5000), *lotRepo.lots[1].UnrealizedPnl)
}

func observedLedger(t *testing.T, lotRepo *fakeLedgerLotRepo, fills []model.TradeFill) (LedgerService, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	log := &logger.Logger{Logger: zap.New(core)}
	svc := NewLedgerService(&config.Config{}, log, lotRepo, &fakeFillRepo{fills: fills}, &fakeHoldingRepo{}, fakeUnitOfWork{}, noopNotifier(t))
	return svc, logs
}

func desyncAlertLogged(logs *observer.ObservedLogs, msg string) bool {
	for _, entry := range logs.FilterMessage(msg).All() {
		if entry.Level != zapcore.ErrorLevel {
			continue
		}
		for _, f := range entry.Context {
			if f.Key == logger.KeySendAlert && f.Integer == 1 {
				return true
			}
		}
	}
	return false
}

func TestApplyDailyNetDeltaOversellRaisesAlert(t *testing.T) {
	tradeDate := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	fills := []model.TradeFill{{
		OrderNo: "0001", StockCode: "005930", SideName: "매도",
		CreditClass: model.CreditClassCash, TradeDate: tradeDate, Quantity: 20, Price: 70000,
	}}

	// Only 10 shares tracked against a 20-share sell.
	lotRepo := &fakeLedgerLotRepo{lots: []model.Lot{lotOn(24, 10, 69000)}}
	svc, logs := observedLedger(t, lotRepo, fills)

	require.NoError(t, svc.ApplyDailyNetDelta(context.Background(), tradeDate))
	assert.True(t, desyncAlertLogged(logs, "Sell quantity exceeds tracked lots"))

	// The tracked lot still closed despite the untracked remainder.
	assert.True(t, lotRepo.lots[0].IsClosed)
}

func TestApplyDailyNetDeltaUntrackedSellRaisesAlert(t *testing.T) {
	tradeDate := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	fills := []model.TradeFill{{
		OrderNo: "0001", StockCode: "005930", SideName: "매도",
		CreditClass: model.CreditClassCash, TradeDate: tradeDate, Quantity: 20, Price: 70000,
	}}

	lotRepo := &fakeLedgerLotRepo{}
	svc, logs := observedLedger(t, lotRepo, fills)

	require.NoError(t, svc.ApplyDailyNetDelta(context.Background(), tradeDate))
	assert.True(t, desyncAlertLogged(logs, "Sell quantity exceeds tracked lots"))
}
