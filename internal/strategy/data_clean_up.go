package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"krx-autotrade/config"
	"krx-autotrade/internal/model"
	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

type DataCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

// DataCleanUpStrategy prunes task execution history and holdings snapshots
// older than the retention window. Lots and fills are kept indefinitely.
type DataCleanUpStrategy struct {
	cfg         *config.Config
	log         *logger.Logger
	jobRepo     repository.JobRepository
	holdingRepo repository.HoldingRepository
}

type dataCleanUpOutput struct {
	Cutoff          string `json:"cutoff"`
	DeletedHistory  int64  `json:"deleted_history"`
	DeletedHoldings int64  `json:"deleted_holdings"`
}

func NewDataCleanUpStrategy(cfg *config.Config, log *logger.Logger, jobRepo repository.JobRepository, holdingRepo repository.HoldingRepository) JobExecutionStrategy {
	return &DataCleanUpStrategy{cfg: cfg, log: log, jobRepo: jobRepo, holdingRepo: holdingRepo}
}

func (s *DataCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload DataCleanUpPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)},
			fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 90
	}

	cutoff := utils.DateOf(utils.TimeNowKST()).AddDate(0, 0, -payload.RetentionDays)

	deletedHistory, err := s.jobRepo.DeleteTaskHistoryOlderThan(ctx, cutoff)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	deletedHoldings, err := s.holdingRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		output := fmt.Sprintf("deleted %d history rows, holdings cleanup failed: %v", deletedHistory, err)
		return JobResult{ExitCode: JOB_EXIT_CODE_PARTIAL_SUCCESS, Output: output}, nil
	}

	out, _ := json.Marshal(dataCleanUpOutput{
		Cutoff:          cutoff.Format("2006-01-02"),
		DeletedHistory:  deletedHistory,
		DeletedHoldings: deletedHoldings,
	})
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(out)}, nil
}

func (s *DataCleanUpStrategy) GetType() JobType {
	return JobTypeDataCleanUp
}
