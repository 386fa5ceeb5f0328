package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// ErrNoSuccess is returned when a batch finished without any successful entity
var ErrNoSuccess = errors.New("no entity succeeded")

// pitCmd represents the pit command
var pitCmd = &cobra.Command{
	Use:   "pit",
	Short: "PIT 배치 / 스냅샷",
	Long: `시점 정합(PIT) 파이프라인을 실행합니다.

Subcommands:
  run        - 기준일 배치 실행 (분해 → 스냅샷 → TTM/YoY → 종합 점수)
  snapshot   - 한 종목의 기준일 스냅샷 조회 (저장하지 않음)
  scheduler  - 일일 배치 스케줄러

Example:
  go run ./cmd/quant pit run --as-of 2024-05-20
  go run ./cmd/quant pit run --from 2024-01-02 --to 2024-03-29 --workers 8
  go run ./cmd/quant pit snapshot 005930 --as-of 2024-05-20`,
}

var pitRunCmd = &cobra.Command{
	Use:   "run",
	Short: "기준일 배치 실행",
	Long: `기준일마다 유니버스의 모든 종목을 처리하고 결과를 교체 저장합니다.

- 시작 전 취소(Ctrl+C)는 다음 종목부터 적용, 이미 시작한 종목은 커밋까지 완료
- 한 종목도 성공하지 못하면 종료 코드 1`,
	RunE: runPIT,
}

var pitSnapshotCmd = &cobra.Command{
	Use:   "snapshot [code]",
	Short: "종목 스냅샷 조회",
	Args:  cobra.ExactArgs(1),
	RunE:  runPITSnapshot,
}

var (
	pitAsOf      []string
	pitFrom      string
	pitTo        string
	pitCodes     []string
	pitBatchSize int
	pitWorkers   int
)

func init() {
	rootCmd.AddCommand(pitCmd)
	pitCmd.AddCommand(pitRunCmd)
	pitCmd.AddCommand(pitSnapshotCmd)

	pitRunCmd.Flags().StringSliceVar(&pitAsOf, "as-of", nil, "기준일 목록 (YYYY-MM-DD, 콤마 구분)")
	pitRunCmd.Flags().StringVar(&pitFrom, "from", "", "기간 시작일 (평일만, --to와 함께)")
	pitRunCmd.Flags().StringVar(&pitTo, "to", "", "기간 종료일")
	pitRunCmd.Flags().StringSliceVar(&pitCodes, "codes", nil, "종목 코드 (비우면 전체)")
	pitRunCmd.Flags().IntVar(&pitBatchSize, "batch-size", 0, "배치 크기 (기본: PIT_BATCH_SIZE)")
	pitRunCmd.Flags().IntVar(&pitWorkers, "workers", 0, "워커 수 (기본: PIT_WORKERS)")

	pitSnapshotCmd.Flags().StringSliceVar(&pitAsOf, "as-of", nil, "기준일 (YYYY-MM-DD, 기본: 오늘)")
}

func runPIT(cmd *cobra.Command, args []string) error {
	dates, err := parseDates(pitAsOf, pitFrom, pitTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.runConfig()
	cfg.Dates = dates
	cfg.Codes = pitCodes
	if pitBatchSize > 0 {
		cfg.BatchSize = pitBatchSize
	}
	if pitWorkers > 0 {
		cfg.Workers = pitWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, err := a.runner().Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run pit batch: %w", err)
	}

	printBatchReport(report, time.Since(start))

	if !report.Succeeded() {
		return ErrNoSuccess
	}
	return nil
}

func runPITSnapshot(cmd *cobra.Command, args []string) error {
	code := args[0]
	asOf := today()
	if len(pitAsOf) > 0 {
		d, err := time.Parse(dateFmt, pitAsOf[0])
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", pitAsOf[0], err)
		}
		asOf = d
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	entity, err := a.stocks.GetEntity(ctx, code)
	if err != nil {
		return fmt.Errorf("get entity %s: %w", code, err)
	}
	records, err := a.disclosures.GetVisibleByCode(ctx, code, asOf)
	if err != nil {
		return fmt.Errorf("get disclosures %s: %w", code, err)
	}

	result, err := a.engine().Snapshot(*entity, asOf, records)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", code, err)
	}

	printSnapshot(result)
	return nil
}

// parseDates accepts explicit dates or a from/to range of weekdays
func parseDates(asOf []string, from, to string) ([]time.Time, error) {
	if len(asOf) > 0 && (from != "" || to != "") {
		return nil, errors.New("use either --as-of or --from/--to")
	}

	var dates []time.Time
	for _, s := range asOf {
		d, err := time.Parse(dateFmt, s)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-of %q: %w", s, err)
		}
		dates = append(dates, d)
	}

	if from != "" || to != "" {
		if from == "" || to == "" {
			return nil, errors.New("--from and --to must be given together")
		}
		start, err := time.Parse(dateFmt, from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
		end, err := time.Parse(dateFmt, to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		if end.Before(start) {
			return nil, errors.New("--to is before --from")
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			dates = append(dates, d)
		}
	}

	if len(dates) == 0 {
		dates = []time.Time{today()}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func printBatchReport(report *contracts.BatchReport, elapsed time.Duration) {
	PrintTitle("PIT Batch %s", report.RunID)

	t := newTable("as_of", "eligible", "success", "failure", "skipped", "excluded", "scores")
	var scoreErrors []string
	for _, d := range report.Dates {
		t.addRow(
			d.AsOf.Format(dateFmt),
			strconv.Itoa(d.EligibleCount),
			strconv.Itoa(d.SuccessCount),
			strconv.Itoa(d.FailureCount),
			strconv.Itoa(d.SkippedCount),
			strconv.Itoa(d.ExcludedCount),
			strconv.Itoa(d.ScoreCount),
		)
		if d.ScoreError != "" {
			scoreErrors = append(scoreErrors, d.AsOf.Format(dateFmt)+" scores: "+d.ScoreError)
		}
	}
	t.print()
	for _, e := range scoreErrors {
		PrintError(e)
	}

	fmt.Println()
	PrintDiagnosticCounts(report.Diagnostics)
	if verbose {
		PrintDiagnostics(report.Diagnostics)
	}

	fmt.Println()
	if report.Cancelled {
		PrintWarning("취소됨: 시작하지 않은 종목은 건너뛰었고 점수는 교체하지 않았습니다")
	}
	if report.Succeeded() {
		PrintSuccess(fmt.Sprintf("%d succeeded, %d failed in %.2fs", report.TotalSuccess(), report.TotalFailure(), elapsed.Seconds()))
	} else {
		PrintError("no entity succeeded")
	}
}

func printSnapshot(result *contracts.EntityResult) {
	PrintTitle("%s @ %s", result.Code, result.AsOf.Format(dateFmt))

	if result.Snapshot == nil {
		PrintWarning("스냅샷 제외 (기준일 현재 유효한 공시 없음)")
	} else {
		t := newTable("metric", "period", "value", "status", "source")
		for _, m := range result.Snapshot.Metrics() {
			v := result.Snapshot.Latest[m]
			t.addRow(
				m,
				v.PeriodEnd.Format(dateFmt),
				strconv.FormatFloat(v.Value, 'f', 0, 64),
				v.Status.String(),
				v.Source.String(),
			)
		}
		t.print()
	}

	fmt.Println()
	t := newTable("metric", "quarter", "ttm", "yoy %", "ttm yoy %", "quality")
	for _, d := range result.Derived {
		t.addRow(
			d.Metric,
			formatOptional(d.Quarter, 0),
			formatOptional(d.TTM, 0),
			formatOptional(d.YoYGrowth, 2),
			formatOptional(d.TTMYoYGrowth, 2),
			string(d.Quality),
		)
	}
	t.print()

	if len(result.Diagnostics) > 0 {
		fmt.Println()
		PrintDiagnostics(result.Diagnostics)
	}
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
