package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"krx-autotrade/internal/repository"
	"krx-autotrade/pkg/utils"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print open lots and today's entry triggers",
	Run:   Status,
}

func Status(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	repo, err := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.cache, appDep.log)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	summaries, err := repo.LotRepo.GetOpenSummaries(ctx)
	if err != nil {
		log.Fatalf("Failed to get lot summaries: %v", err)
	}

	today := utils.DateOf(utils.TimeNowKST())
	triggers, err := repo.TriggerRepo.GetByDay(ctx, today, nil)
	if err != nil {
		log.Fatalf("Failed to get triggers: %v", err)
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"trading_day":  today.Format("2006-01-02"),
		"open_lots":    summaries,
		"triggers":     triggers,
		"trigger_hits": len(triggers),
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal status: %v", err)
	}
	fmt.Println(string(out))
}
