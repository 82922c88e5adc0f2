package strategy

import (
	"context"
	"fmt"

	"krx-autotrade/config"
	"krx-autotrade/internal/contract"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/logger"
)

// TriggerSweepStrategy force-resolves pending entry triggers whose order was
// never confirmed, so the symbol is not stuck claimed for the rest of the day.
type TriggerSweepStrategy struct {
	cfg      *config.Config
	log      *logger.Logger
	triggers contract.TriggerSweepContract
}

func NewTriggerSweepStrategy(cfg *config.Config, log *logger.Logger, triggers contract.TriggerSweepContract) JobExecutionStrategy {
	return &TriggerSweepStrategy{cfg: cfg, log: log, triggers: triggers}
}

func (s *TriggerSweepStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	swept, err := s.triggers.SweepStale(ctx)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	if swept == 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "no stale triggers"}, nil
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: fmt.Sprintf("resolved %d stale triggers", swept)}, nil
}

func (s *TriggerSweepStrategy) GetType() JobType {
	return JobTypeTriggerSweep
}
