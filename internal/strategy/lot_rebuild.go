package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/contract"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"
)

// LotRebuildPayload bounds the replay. With only LookbackDays set the range
// ends today; explicit dates win over the lookback.
type LotRebuildPayload struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	LookbackDays int    `json:"lookback_days"`
}

type LotRebuildStrategy struct {
	cfg    *config.Config
	log    *logger.Logger
	ledger contract.LedgerContract
}

func NewLotRebuildStrategy(cfg *config.Config, log *logger.Logger, ledger contract.LedgerContract) JobExecutionStrategy {
	return &LotRebuildStrategy{cfg: cfg, log: log, ledger: ledger}
}

func (s *LotRebuildStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload LotRebuildPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)},
			fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	now := utils.TimeNowKST()
	from, to, err := payload.resolveRange(now)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	s.log.InfoContext(ctx, "Rebuilding lots",
		logger.StringField("from", from.Format("2006-01-02")),
		logger.StringField("to", to.Format("2006-01-02")),
	)

	if err := s.ledger.RebuildRange(ctx, from, to); err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	output := fmt.Sprintf("rebuilt lots from %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: output}, nil
}

func (p *LotRebuildPayload) resolveRange(now time.Time) (time.Time, time.Time, error) {
	to := utils.DateOf(now)
	if p.EndDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", p.EndDate, utils.GetKSTLocation())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", p.EndDate, err)
		}
		to = parsed
	}

	if p.StartDate != "" {
		from, err := time.ParseInLocation("2006-01-02", p.StartDate, utils.GetKSTLocation())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", p.StartDate, err)
		}
		return from, to, nil
	}

	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	return to.AddDate(0, 0, -lookback), to, nil
}

func (s *LotRebuildStrategy) GetType() JobType {
	return JobTypeLotRebuild
}
