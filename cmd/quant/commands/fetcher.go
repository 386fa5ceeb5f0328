package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/external/dart"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/collector"
)

// fetcherCmd represents the fetcher command
var fetcherCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "공시 데이터 수집 도구",
	Long: `DART 정기보고서 주요 계정을 수집해 공시 레코드로 저장합니다.

Example:
  go run ./cmd/quant fetcher financials
  go run ./cmd/quant fetcher financials --years 2023,2024 --codes 005930,000660`,
}

// fetcherFinancialsCmd represents the financials subcommand
var fetcherFinancialsCmd = &cobra.Command{
	Use:   "financials",
	Short: "DART 재무 공시 수집",
	Long: `종목별로 1분기/반기/3분기/사업보고서를 조회합니다.

- 연결재무제표(CFS) 우선, 없으면 별도(OFS)
- 1~3분기는 누적 금액, 사업보고서는 연간 금액
- 공시일은 접수번호 앞 8자리
- DART_RATE_LIMIT_RPS로 초당 요청 수 제한`,
	RunE: runFetcherFinancials,
}

var (
	fetcherYears   []int
	fetcherCodes   []string
	fetcherWorkers int
)

func init() {
	rootCmd.AddCommand(fetcherCmd)
	fetcherCmd.AddCommand(fetcherFinancialsCmd)

	fetcherFinancialsCmd.Flags().IntSliceVar(&fetcherYears, "years", nil, "사업연도 (기본: 작년, 올해)")
	fetcherFinancialsCmd.Flags().StringSliceVar(&fetcherCodes, "codes", nil, "종목 코드 (비우면 corp_code가 있는 전체)")
	fetcherFinancialsCmd.Flags().IntVar(&fetcherWorkers, "workers", 4, "동시 수집 워커 수")
}

func runFetcherFinancials(cmd *cobra.Command, args []string) error {
	years := fetcherYears
	if len(years) == 0 {
		y := time.Now().Year()
		years = []int{y - 1, y}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.DART.APIKey == "" {
		return fmt.Errorf("DART_API_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpCodes, err := a.stocks.GetCorpCodes(ctx, fetcherCodes)
	if err != nil {
		return fmt.Errorf("get corp codes: %w", err)
	}
	if len(corpCodes) == 0 {
		PrintWarning("corp_code가 등록된 종목이 없습니다")
		return nil
	}

	col := collector.NewCollector(dart.NewClient(a.cfg, a.log), a.disclosures, a.log)

	start := time.Now()
	results, err := col.FetchAllFinancials(ctx, collector.TargetsFrom(corpCodes), collector.Config{
		Workers: fetcherWorkers,
		Years:   years,
	})
	if err != nil {
		return fmt.Errorf("fetch financials: %w", err)
	}

	records, failed := 0, 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			PrintError(fmt.Sprintf("%s: %v", r.StockCode, r.Error))
			continue
		}
		records += r.RecordCount
	}

	fmt.Println()
	PrintKeyValue("stocks", strconv.Itoa(len(results)), 8)
	PrintKeyValue("records", strconv.Itoa(records), 8)
	PrintKeyValue("failed", strconv.Itoa(failed), 8)
	PrintSuccess(fmt.Sprintf("completed in %.2fs", time.Since(start).Seconds()))

	if failed == len(results) {
		return fmt.Errorf("financial collection failed for all %d stocks", failed)
	}
	return nil
}
