package repository

import (
	"context"
	"encoding/json"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/cache"

	"gorm.io/gorm"
)

type SystemParamRepository interface {
	Get(ctx context.Context, name string, destValue interface{}) error
	// GetTradingParams returns the operator-tunable strategy parameters,
	// falling back to the static config when the row is absent.
	GetTradingParams(ctx context.Context) (model.TradingParams, error)
}

type systemParamRepository struct {
	cfg           *config.Config
	inmemoryCache cache.Cache
	db            *gorm.DB
}

func NewSystemParamRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB) SystemParamRepository {
	return &systemParamRepository{cfg: cfg, inmemoryCache: inmemoryCache, db: db}
}

func (s *systemParamRepository) Get(ctx context.Context, name string, destValue interface{}) error {
	var param model.SystemParameter

	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&param).Error; err != nil {
		return err
	}
	return json.Unmarshal(param.Value, destValue)
}

func (s *systemParamRepository) GetTradingParams(ctx context.Context) (model.TradingParams, error) {
	if val, found := cache.GetTyped[model.TradingParams](s.inmemoryCache, model.SysParamTradingParams); found {
		return val, nil
	}

	var params model.TradingParams
	err := s.Get(ctx, model.SysParamTradingParams, &params)
	if err == gorm.ErrRecordNotFound {
		params = model.TradingParams{
			UnitPct:        s.cfg.Trading.UnitPct,
			TickBuffer:     s.cfg.Trading.TickBuffer,
			StopLossPct:    s.cfg.Trading.StopLossPct,
			MaxLeveragePct: s.cfg.Trading.MaxLeveragePct,
		}
	} else if err != nil {
		return model.TradingParams{}, err
	}

	s.inmemoryCache.Set(model.SysParamTradingParams, params, s.cfg.Cache.DefaultExpiration)
	return params, nil
}
