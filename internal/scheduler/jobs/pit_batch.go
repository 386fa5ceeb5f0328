package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/pipeline"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// BatchRunner runs the PIT pipeline over a set of dates
type BatchRunner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*contracts.BatchReport, error)
}

// kst is the market calendar zone; the as-of date is the KST calendar day
var kst = time.FixedZone("KST", 9*60*60)

// PITBatchJob computes the PIT snapshot, derived metrics and scores for today
// ⭐ SSOT: PIT 일일 배치 스케줄은 이 Job에서만
type PITBatchJob struct {
	runner   BatchRunner
	template pipeline.RunConfig
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewPITBatchJob creates a new PIT batch job.
// template carries batch size, workers and params hash; its Dates are ignored.
func NewPITBatchJob(runner BatchRunner, template pipeline.RunConfig, schedule string, log *logger.Logger) *PITBatchJob {
	return &PITBatchJob{
		runner:   runner,
		template: template,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *PITBatchJob) Name() string {
	return "pit_batch"
}

// Schedule returns the cron schedule (weekdays 8:30 PM KST by default)
func (j *PITBatchJob) Schedule() string {
	return j.schedule
}

// AsOf returns today's KST calendar date as a UTC midnight
func (j *PITBatchJob) AsOf() time.Time {
	y, m, d := j.now().In(kst).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run executes the batch for today's as-of date
func (j *PITBatchJob) Run(ctx context.Context) error {
	cfg := j.template
	cfg.Dates = []time.Time{j.AsOf()}

	j.logger.WithField("as_of", cfg.Dates[0].Format("2006-01-02")).Info("Starting scheduled PIT batch")

	report, err := j.runner.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run pit batch: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      report.RunID,
		"success":     report.TotalSuccess(),
		"failure":     report.TotalFailure(),
		"diagnostics": len(report.Diagnostics),
		"cancelled":   report.Cancelled,
	}).Info("Scheduled PIT batch completed")

	if !report.Succeeded() {
		return fmt.Errorf("pit batch %s: no entity succeeded", report.RunID)
	}
	return nil
}
