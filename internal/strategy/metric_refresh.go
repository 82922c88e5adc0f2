package strategy

import (
	"context"
	"fmt"

	"krx-autotrade/config"
	"krx-autotrade/internal/contract"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// MetricRefreshStrategy recomputes holding days and unrealized PnL for every
// open lot from the latest holdings snapshot.
type MetricRefreshStrategy struct {
	cfg    *config.Config
	log    *logger.Logger
	ledger contract.LedgerContract
}

func NewMetricRefreshStrategy(cfg *config.Config, log *logger.Logger, ledger contract.LedgerContract) JobExecutionStrategy {
	return &MetricRefreshStrategy{cfg: cfg, log: log, ledger: ledger}
}

func (s *MetricRefreshStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	today := utils.DateOf(utils.TimeNowKST())

	updated, err := s.ledger.RefreshMetrics(ctx, today)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: fmt.Sprintf("refreshed metrics on %d lots", updated)}, nil
}

func (s *MetricRefreshStrategy) GetType() JobType {
	return JobTypeMetricRefresh
}
