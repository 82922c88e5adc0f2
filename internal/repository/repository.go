package repository

import (
	"krx-autotrade/config"
	"krx-autotrade/pkg/cache"
	"krx-autotrade/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	LotRepo         LotRepository
	TriggerRepo     TriggerRepository
	TradeFillRepo   TradeFillRepository
	HoldingRepo     HoldingRepository
	WatchlistRepo   WatchlistRepository
	SystemParamRepo SystemParamRepository
	JobRepo         JobRepository
	KiwoomRepo      KiwoomRepository
	UnitOfWork      UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, inmemoryCache cache.Cache, log *logger.Logger) (*Repository, error) {
	kiwoomRepo, err := NewKiwoomRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		LotRepo:         NewLotRepository(db),
		TriggerRepo:     NewTriggerRepository(db),
		TradeFillRepo:   NewTradeFillRepository(db),
		HoldingRepo:     NewHoldingRepository(db),
		WatchlistRepo:   NewWatchlistRepository(db),
		SystemParamRepo: NewSystemParamRepository(cfg, inmemoryCache, db),
		JobRepo:         NewJobRepository(db),
		KiwoomRepo:      kiwoomRepo,
		UnitOfWork:      NewUnitOfWork(db),
	}, nil
}
