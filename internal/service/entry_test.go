package service

import (
	"context"
	"testing"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/utils"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestEvaluateSignal(t *testing.T) {
	svc := &entryService{}
	item := &model.WatchlistItem{StockCode: "005930", ReferencePrice: 70000}

	tests := []struct {
		name         string
		quote        dto.Quote
		at           time.Time
		expectedType model.EntryType
		expectedOK   bool
	}{
		{
			name:         "breakout in morning window",
			quote:        dto.Quote{CurrentPrice: 70000},
			at:           kstTime(9, 5),
			expectedType: model.EntryTypeBreakout,
			expectedOK:   true,
		},
		{
			name:       "below reference in window",
			quote:      dto.Quote{CurrentPrice: 69900},
			at:         kstTime(9, 5),
			expectedOK: false,
		},
		{
			name:       "breakout outside window",
			quote:      dto.Quote{CurrentPrice: 71000},
			at:         kstTime(12, 0),
			expectedOK: false,
		},
		{
			name:         "gap up in opening minute",
			quote:        dto.Quote{CurrentPrice: 69000, OpenPrice: 70500},
			at:           kstTime(9, 0),
			expectedType: model.EntryTypeGapUp,
			expectedOK:   true,
		},
		{
			name:       "open equal to reference is not a gap up",
			quote:      dto.Quote{CurrentPrice: 69000, OpenPrice: 70000},
			at:         kstTime(9, 0),
			expectedOK: false,
		},
		{
			name:       "gap up after opening minute ignored",
			quote:      dto.Quote{CurrentPrice: 69000, OpenPrice: 70500},
			at:         kstTime(9, 2),
			expectedOK: false,
		},
		{
			name:         "breakout in evening window",
			quote:        dto.Quote{CurrentPrice: 70100},
			at:           kstTime(19, 45),
			expectedType: model.EntryTypeBreakout,
			expectedOK:   true,
		},
		{
			name:       "zero current price",
			quote:      dto.Quote{CurrentPrice: 0},
			at:         kstTime(9, 5),
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entryType, ok := svc.EvaluateSignal(&tt.quote, item, tt.at)
			assert.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				assert.Equal(t, tt.expectedType, entryType)
			}
		})
	}
}

func TestEvaluateSignalNoReferencePrice(t *testing.T) {
	svc := &entryService{}
	item := &model.WatchlistItem{StockCode: "005930", ReferencePrice: 0}

	_, ok := svc.EvaluateSignal(&dto.Quote{CurrentPrice: 70000}, item, kstTime(9, 5))
	assert.False(t, ok)
}

type fakeLotRepo struct {
	repository.LotRepository
	lots []model.Lot
}

func (f *fakeLotRepo) Get(ctx context.Context, param model.GetLotsParam, opts ...utils.DBOption) ([]model.Lot, error) {
	return f.lots, nil
}

type fakeEntryTriggerSvc struct {
	TriggerService
	attempted  bool
	registered int
	resolved   []model.TriggerStatus
}

func (f *fakeEntryTriggerSvc) Attempted(ctx context.Context, stockCode string) (bool, error) {
	return f.attempted, nil
}

func (f *fakeEntryTriggerSvc) Register(ctx context.Context, stockCode string, entryType model.EntryType, detail datatypes.JSON) (*model.TriggerEntry, error) {
	f.registered++
	return &model.TriggerEntry{ID: 1, StockCode: stockCode, EntryType: entryType, Status: model.TriggerStatusPending}, nil
}

func (f *fakeEntryTriggerSvc) Resolve(ctx context.Context, entry *model.TriggerEntry, status model.TriggerStatus, entryPrice *float64, orderNo string) error {
	f.resolved = append(f.resolved, status)
	entry.Status = status
	return nil
}

type fakeEntryOrderSvc struct {
	OrderService
	buys int
}

func (f *fakeEntryOrderSvc) ExecuteBuy(ctx context.Context, stockCode string, referencePrice float64, units float64, reason string) (*dto.OrderResult, error) {
	f.buys++
	return &dto.OrderResult{OrderNo: "0001", StockCode: stockCode, LimitPrice: referencePrice}, nil
}

func tryEnterFixture(lots []model.Lot) (*entryService, *fakeEntryTriggerSvc, *fakeEntryOrderSvc) {
	triggerSvc := &fakeEntryTriggerSvc{}
	orderSvc := &fakeEntryOrderSvc{}
	svc := &entryService{
		cfg:        &config.Config{Monitor: config.Monitor{StaleTriggerTimeout: time.Minute}},
		log:        testLogger(),
		lotRepo:    &fakeLotRepo{lots: lots},
		triggerSvc: triggerSvc,
		orderSvc:   orderSvc,
	}
	return svc, triggerSvc, orderSvc
}

func TestTryEnterSkipsHeldSymbol(t *testing.T) {
	now := kstTime(9, 5)
	held := []model.Lot{{StockCode: "005930", NetQuantity: 10, AvgPurchasePrice: 68000}}
	svc, triggerSvc, orderSvc := tryEnterFixture(held)

	quote := &dto.Quote{StockCode: "005930", CurrentPrice: 70000, FetchedAt: now}
	item := &model.WatchlistItem{StockCode: "005930", ReferencePrice: 70000, MaxUnits: 1}

	err := svc.TryEnter(context.Background(), quote, item, now)
	assert.NoError(t, err)
	assert.Zero(t, triggerSvc.registered)
	assert.Zero(t, orderSvc.buys)
}

func TestTryEnterUnheldSymbolBuys(t *testing.T) {
	now := kstTime(9, 5)
	svc, triggerSvc, orderSvc := tryEnterFixture(nil)

	quote := &dto.Quote{StockCode: "005930", CurrentPrice: 70000, FetchedAt: now}
	item := &model.WatchlistItem{StockCode: "005930", ReferencePrice: 70000, MaxUnits: 1}

	err := svc.TryEnter(context.Background(), quote, item, now)
	assert.NoError(t, err)
	assert.Equal(t, 1, triggerSvc.registered)
	assert.Equal(t, 1, orderSvc.buys)
	assert.Equal(t, []model.TriggerStatus{model.TriggerStatusSuccess}, triggerSvc.resolved)
}

func TestTryEnterAttemptedSymbolSkipped(t *testing.T) {
	now := kstTime(9, 5)
	svc, triggerSvc, orderSvc := tryEnterFixture(nil)
	triggerSvc.attempted = true

	quote := &dto.Quote{StockCode: "005930", CurrentPrice: 70000, FetchedAt: now}
	item := &model.WatchlistItem{StockCode: "005930", ReferencePrice: 70000, MaxUnits: 1}

	err := svc.TryEnter(context.Background(), quote, item, now)
	assert.NoError(t, err)
	assert.Zero(t, triggerSvc.registered)
	assert.Zero(t, orderSvc.buys)
}
