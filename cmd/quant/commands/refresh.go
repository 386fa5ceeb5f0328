package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/s0_data/refresh"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [views...]",
	Short: "머티리얼라이즈드 뷰 갱신",
	Long: `PIT 결과 뷰를 갱신합니다.
CONCURRENTLY 갱신이 실패하면 일반 갱신으로 한 번 더 시도합니다.

Example:
  go run ./cmd/quant refresh
  go run ./cmd/quant refresh pit.mv_latest_scores`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	views := args
	if len(views) == 0 {
		views = refresh.DefaultViews
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := refresh.NewRefresher(a.db.Pool, a.log).RefreshAll(context.Background(), views)

	t := newTable("view", "state", "attempts")
	for _, r := range results {
		t.addRow(r.View, string(r.Final), strconv.Itoa(len(r.Attempts)))
	}
	t.print()

	return err
}
