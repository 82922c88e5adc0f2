package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/cache"
	"krx-autotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type fakeVenueCheck struct {
	repository.KiwoomRepository
	calls    int
	tradable bool
	err      error
}

func (f *fakeVenueCheck) IsSecondaryVenueTradable(ctx context.Context, stockCode string) (bool, error) {
	f.calls++
	return f.tradable, f.err
}

func TestTradableOnSecondaryMemoizedPerDay(t *testing.T) {
	check := &fakeVenueCheck{tradable: true}
	svc := NewVenueService(&config.Config{}, testLogger(), check, cache.NewCache(time.Minute, time.Minute))

	assert.True(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.True(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.Equal(t, 1, check.calls)

	// A different symbol gets its own broker check.
	check.tradable = false
	assert.False(t, svc.TradableOnSecondary(context.Background(), "000660"))
	assert.Equal(t, 2, check.calls)
}

func TestTradableOnSecondaryNegativeAnswerMemoized(t *testing.T) {
	check := &fakeVenueCheck{tradable: false}
	svc := NewVenueService(&config.Config{}, testLogger(), check, cache.NewCache(time.Minute, time.Minute))

	assert.False(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.False(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.Equal(t, 1, check.calls)
}

func TestTradableOnSecondaryCheckFailureRetries(t *testing.T) {
	check := &fakeVenueCheck{err: errors.New("timeout")}
	svc := NewVenueService(&config.Config{}, testLogger(), check, cache.NewCache(time.Minute, time.Minute))

	assert.False(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.False(t, svc.TradableOnSecondary(context.Background(), "005930"))
	// Failures are not memoized; each need retries the broker check.
	assert.Equal(t, 2, check.calls)

	check.err = nil
	check.tradable = true
	assert.True(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.True(t, svc.TradableOnSecondary(context.Background(), "005930"))
	assert.Equal(t, 3, check.calls)
}
