package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"krx-autotrade/config"
	"krx-autotrade/internal/contract"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// HoldingsSyncStrategy pulls today's fills and holdings from the brokerage,
// folds the fills into the lot ledger, then reconciles lots against the
// snapshot. Runs after each trading session and at end of day.
type HoldingsSyncStrategy struct {
	cfg    *config.Config
	log    *logger.Logger
	broker contract.BrokerSyncContract
	ledger contract.LedgerContract
}

type holdingsSyncOutput struct {
	TradeDate    string `json:"trade_date"`
	NewFills     int64  `json:"new_fills"`
	HoldingCount int    `json:"holding_count"`
}

func NewHoldingsSyncStrategy(cfg *config.Config, log *logger.Logger, broker contract.BrokerSyncContract, ledger contract.LedgerContract) JobExecutionStrategy {
	return &HoldingsSyncStrategy{cfg: cfg, log: log, broker: broker, ledger: ledger}
}

func (s *HoldingsSyncStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	today := utils.DateOf(utils.TimeNowKST())
	if !utils.IsTradingDay(today) {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "not a trading day"}, nil
	}

	newFills, err := s.broker.SyncTradeFills(ctx, today)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	if err := s.ledger.ApplyDailyNetDelta(ctx, today); err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	holdingCount, err := s.broker.SyncHoldings(ctx, today)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	if err := s.ledger.Reconcile(ctx, today); err != nil {
		// Fills and holdings landed; only the reconciliation diverged.
		s.log.ErrorContext(ctx, "Lot reconciliation failed", logger.ErrorField(err))
		output := fmt.Sprintf("synced %d fills and %d holdings, reconcile failed: %v", newFills, holdingCount, err)
		return JobResult{ExitCode: JOB_EXIT_CODE_PARTIAL_SUCCESS, Output: output}, nil
	}

	out, _ := json.Marshal(holdingsSyncOutput{
		TradeDate:    today.Format("2006-01-02"),
		NewFills:     newFills,
		HoldingCount: holdingCount,
	})
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(out)}, nil
}

func (s *HoldingsSyncStrategy) GetType() JobType {
	return JobTypeHoldingsSync
}
