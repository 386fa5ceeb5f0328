package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-pit/backend/internal/external/dart"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/collector"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/quality"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/refresh"
	"github.com/wonny/aegis-pit/backend/internal/scheduler"
	"github.com/wonny/aegis-pit/backend/internal/scheduler/jobs"
)

// pitSchedulerCmd represents the pit scheduler command
var pitSchedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "일일 배치 스케줄러",
	Long: `일일 PIT 작업을 cron으로 실행합니다.

등록되는 작업 (KST):
- financial_collection: 평일 19:00 (DART 정기보고서 수집)
- pit_batch:            PIT_BATCH_CRON (기본 평일 20:30)
- view_refresh:         평일 21:00 (머티리얼라이즈드 뷰 갱신)
- quality_check:        평일 21:15 (품질 스냅샷 저장)

Example:
  go run ./cmd/quant pit scheduler start
  go run ./cmd/quant pit scheduler list`,
}

var (
	pitSchedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작 (Ctrl+C로 종료)",
		RunE:  runPITScheduler,
	}

	pitSchedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listPITJobs,
	}
)

func init() {
	pitCmd.AddCommand(pitSchedulerCmd)
	pitSchedulerCmd.AddCommand(pitSchedulerStartCmd)
	pitSchedulerCmd.AddCommand(pitSchedulerListCmd)
}

func runPITScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Scheduler.Enabled {
		PrintWarning("Scheduler disabled (PIT_SCHEDULER_ENABLED=false)")
		return nil
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	PrintSuccess("Scheduler started")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listPITJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nRegistered jobs:")
	for _, name := range names {
		PrintKeyValue(name, stats[name].Schedule, 22)
	}
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.WithRetry(2, 5*time.Minute))

	dartClient := dart.NewClient(a.cfg, a.log)
	col := collector.NewCollector(dartClient, a.disclosures, a.log)

	batch := jobs.NewPITBatchJob(a.runner(), a.runConfig(), a.cfg.Scheduler.PITBatchSpec, a.log)
	gate := quality.NewQualityGate(a.db.Pool, quality.DefaultConfig())

	for _, job := range []scheduler.Job{
		jobs.NewDataCollectionJob(col, a.stocks, a.params.Workers, a.log),
		batch,
		jobs.NewViewRefreshJob(refresh.NewRefresher(a.db.Pool, a.log), refresh.DefaultViews, a.log),
		jobs.NewQualityCheckJob(gate, quality.NewRepository(a.db.Pool), batch, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}
