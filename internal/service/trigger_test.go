package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"github.com/stretchr/testify/assert"
)

// fakeTriggerRepo mimics the registry table: the (trading_day, stock_code)
// pair is unique and Create reports a conflict by returning false.
type fakeTriggerRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries map[string]*model.TriggerEntry
}

func newFakeTriggerRepo() *fakeTriggerRepo {
	return &fakeTriggerRepo{entries: make(map[string]*model.TriggerEntry)}
}

func triggerKey(day time.Time, code string) string {
	return day.Format("2006-01-02") + ":" + code
}

func (f *fakeTriggerRepo) Create(ctx context.Context, entry *model.TriggerEntry, opts ...utils.DBOption) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := triggerKey(entry.TradingDay, entry.StockCode)
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	f.nextID++
	entry.ID = f.nextID
	stored := *entry
	f.entries[key] = &stored
	return true, nil
}

func (f *fakeTriggerRepo) GetByDay(ctx context.Context, tradingDay time.Time, status *model.TriggerStatus) ([]model.TriggerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TriggerEntry
	for _, e := range f.entries {
		if !e.TradingDay.Equal(tradingDay) {
			continue
		}
		if status != nil && e.Status != *status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeTriggerRepo) FindByDayAndCode(ctx context.Context, tradingDay time.Time, stockCode string) (*model.TriggerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[triggerKey(tradingDay, stockCode)]; ok {
		found := *e
		return &found, nil
	}
	return nil, nil
}

func (f *fakeTriggerRepo) Resolve(ctx context.Context, id uint, status model.TriggerStatus, entryPrice *float64, orderNo string, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			e.Status = status
			e.EntryPrice = entryPrice
			if orderNo != "" {
				e.OrderNo = orderNo
			}
			now := utils.TimeNowKST()
			e.ResolvedAt = &now
		}
	}
	return nil
}

func (f *fakeTriggerRepo) GetStalePending(ctx context.Context, tradingDay time.Time, before time.Time) ([]model.TriggerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TriggerEntry
	for _, e := range f.entries {
		if e.TradingDay.Equal(tradingDay) && e.Status == model.TriggerStatusPending && e.TriggeredAt.Before(before) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeTriggerRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func newTriggerFixture() (TriggerService, *fakeTriggerRepo) {
	repo := newFakeTriggerRepo()
	cfg := &config.Config{Monitor: config.Monitor{StaleTriggerTimeout: 5 * time.Minute}}
	return NewTriggerService(cfg, testLogger(), repo), repo
}

func TestRegisterConcurrentAttemptsSingleEntry(t *testing.T) {
	svc, repo := newTriggerFixture()

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	duplicates := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "005930", model.EntryTypeBreakout, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				assert.ErrorIs(t, err, ErrDuplicateTrigger)
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
	assert.Equal(t, 1, repo.count())
}

func TestRegisterFailedAttemptStillBlocksRetry(t *testing.T) {
	svc, repo := newTriggerFixture()

	entry, err := svc.Register(context.Background(), "005930", model.EntryTypeBreakout, nil)
	assert.NoError(t, err)
	assert.NoError(t, svc.Resolve(context.Background(), entry, model.TriggerStatusOrderFailed, nil, ""))

	// order_failed is terminal but the symbol stays claimed for the day.
	_, err = svc.Register(context.Background(), "005930", model.EntryTypeGapUp, nil)
	assert.ErrorIs(t, err, ErrDuplicateTrigger)

	attempted, err := svc.Attempted(context.Background(), "005930")
	assert.NoError(t, err)
	assert.True(t, attempted)
	assert.Equal(t, 1, repo.count())
}

func TestResolveTerminalStateBlocksTransitions(t *testing.T) {
	svc, _ := newTriggerFixture()

	entry, err := svc.Register(context.Background(), "005930", model.EntryTypeBreakout, nil)
	assert.NoError(t, err)

	assert.Error(t, svc.Resolve(context.Background(), entry, model.TriggerStatusPending, nil, ""))

	assert.NoError(t, svc.Resolve(context.Background(), entry, model.TriggerStatusSuccess, utils.ToPointer(70000.0), "0001"))
	assert.Equal(t, model.TriggerStatusSuccess, entry.Status)

	assert.Error(t, svc.Resolve(context.Background(), entry, model.TriggerStatusOrderFailed, nil, ""))
}

func TestResetDayKeepsRegistryBackstop(t *testing.T) {
	svc, _ := newTriggerFixture()

	_, err := svc.Register(context.Background(), "005930", model.EntryTypeBreakout, nil)
	assert.NoError(t, err)

	// Losing the in-process claim set, e.g. across a restart, must not allow
	// a second attempt while the registry row for today exists.
	svc.ResetDay(context.Background())
	_, err = svc.Register(context.Background(), "005930", model.EntryTypeBreakout, nil)
	assert.ErrorIs(t, err, ErrDuplicateTrigger)

	attempted, err := svc.Attempted(context.Background(), "005930")
	assert.NoError(t, err)
	assert.True(t, attempted)
}

func TestSweepStaleResolvesOldPending(t *testing.T) {
	svc, repo := newTriggerFixture()

	now := utils.TimeNowKST()
	today := TradingDayOf(now)

	stale := &model.TriggerEntry{
		TradingDay:  today,
		StockCode:   "005930",
		EntryType:   model.EntryTypeBreakout,
		Status:      model.TriggerStatusPending,
		TriggeredAt: now.Add(-10 * time.Minute),
	}
	fresh := &model.TriggerEntry{
		TradingDay:  today,
		StockCode:   "000660",
		EntryType:   model.EntryTypeBreakout,
		Status:      model.TriggerStatusPending,
		TriggeredAt: now,
	}
	_, err := repo.Create(context.Background(), stale)
	assert.NoError(t, err)
	_, err = repo.Create(context.Background(), fresh)
	assert.NoError(t, err)

	swept, err := svc.SweepStale(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, swept)

	entry, err := repo.FindByDayAndCode(context.Background(), today, "005930")
	assert.NoError(t, err)
	assert.Equal(t, model.TriggerStatusOrderFailed, entry.Status)

	entry, err = repo.FindByDayAndCode(context.Background(), today, "000660")
	assert.NoError(t, err)
	assert.Equal(t, model.TriggerStatusPending, entry.Status)
}
