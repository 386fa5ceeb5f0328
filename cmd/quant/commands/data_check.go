package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/s0_data/quality"
)

// dataCheckCmd represents the data-check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "PIT 데이터 품질 검사",
	Long: `기준일의 공시 커버리지, 최신성, 결과 행 수를 검사하고 스냅샷을 저장합니다.

행 수 감소는 저장된 직전 스냅샷과 비교합니다 (첫 실행은 비교 없음).

Example:
  go run ./cmd/quant data-check
  go run ./cmd/quant data-check --date 2024-05-20 --no-save`,
	RunE: runDataCheck,
}

var (
	checkDate   string
	checkNoSave bool
)

func init() {
	rootCmd.AddCommand(dataCheckCmd)
	dataCheckCmd.Flags().StringVar(&checkDate, "date", "", "검사 기준일 (YYYY-MM-DD, 기본: 오늘)")
	dataCheckCmd.Flags().BoolVar(&checkNoSave, "no-save", false, "스냅샷을 저장하지 않음")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	date := today()
	if checkDate != "" {
		d, err := time.Parse(dateFmt, checkDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		date = d
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	repo := quality.NewRepository(a.db.Pool)
	gate := quality.NewQualityGate(a.db.Pool, quality.DefaultConfig())

	previous, err := repo.GetLatestBefore(ctx, date)
	if err != nil {
		return fmt.Errorf("load previous snapshot: %w", err)
	}

	snapshot, err := gate.Check(ctx, date, previous)
	if err != nil {
		return fmt.Errorf("quality check: %w", err)
	}

	PrintTitle("Data Quality %s", date.Format(dateFmt))
	for _, r := range snapshot.Results {
		line := fmt.Sprintf("[%s] %s: %s", r.Kind, r.Name, r.Message)
		if r.Passed {
			PrintSuccess(line)
		} else {
			PrintError(line)
		}
	}
	fmt.Println()
	PrintKeyValue("quality_score", fmt.Sprintf("%.3f", snapshot.QualityScore), 14)

	if !checkNoSave {
		if err := repo.SaveSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		PrintInfo("snapshot saved")
	}

	if !snapshot.Passed {
		return fmt.Errorf("quality gate failed for %s", date.Format(dateFmt))
	}
	return nil
}
