package service

import (
	"context"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/cache"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

const cacheKeyVenuePrefix = "venue:secondary:"

// VenueService answers whether a symbol trades on the secondary after-hours
// venue today. The broker check runs lazily on first need per symbol and the
// answer is memoized for the trading day; day-scoped keys make the memo
// expire with the session boundary.
type VenueService interface {
	// TradableOnSecondary reports the memoized broker answer. A failed check
	// defaults to false and is not memoized, so the next need retries.
	TradableOnSecondary(ctx context.Context, stockCode string) bool
}

type venueService struct {
	cfg           *config.Config
	log           *logger.Logger
	kiwoomRepo    repository.KiwoomRepository
	inmemoryCache cache.Cache
}

func NewVenueService(cfg *config.Config, log *logger.Logger, kiwoomRepo repository.KiwoomRepository, inmemoryCache cache.Cache) VenueService {
	return &venueService{
		cfg:           cfg,
		log:           log,
		kiwoomRepo:    kiwoomRepo,
		inmemoryCache: inmemoryCache,
	}
}

func venueCacheKey(stockCode string, day time.Time) string {
	return cacheKeyVenuePrefix + stockCode + ":" + day.Format("20060102")
}

func (s *venueService) TradableOnSecondary(ctx context.Context, stockCode string) bool {
	key := venueCacheKey(stockCode, TradingDayOf(utils.TimeNowKST()))
	if tradable, found := cache.GetTyped[bool](s.inmemoryCache, key); found {
		return tradable
	}

	tradable, err := s.kiwoomRepo.IsSecondaryVenueTradable(ctx, stockCode)
	if err != nil {
		s.log.WarnContext(ctx, "Secondary venue check failed",
			logger.ErrorField(err),
			logger.StringField("stock_code", stockCode),
		)
		return false
	}

	s.inmemoryCache.Set(key, tradable, 24*time.Hour)
	s.log.DebugContext(ctx, "Secondary venue availability memoized",
		logger.StringField("stock_code", stockCode),
		logger.Field("tradable", tradable),
	)
	return tradable
}
