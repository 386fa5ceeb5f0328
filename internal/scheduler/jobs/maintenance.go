package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-pit/backend/internal/s0_data/quality"
	"github.com/wonny/aegis-pit/backend/internal/s0_data/refresh"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// ViewRefreshJob refreshes the materialized views over PIT results
type ViewRefreshJob struct {
	refresher *refresh.Refresher
	views     []string
	logger    *logger.Logger
}

// NewViewRefreshJob creates a new view refresh job
func NewViewRefreshJob(refresher *refresh.Refresher, views []string, log *logger.Logger) *ViewRefreshJob {
	return &ViewRefreshJob{
		refresher: refresher,
		views:     views,
		logger:    log,
	}
}

// Name returns the job name
func (j *ViewRefreshJob) Name() string {
	return "view_refresh"
}

// Schedule returns the cron schedule (weekdays 9 PM KST, after the PIT batch)
func (j *ViewRefreshJob) Schedule() string {
	return "0 0 21 * * 1-5"
}

// Run executes the refresh
func (j *ViewRefreshJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled view refresh")

	results, err := j.refresher.RefreshAll(ctx, j.views)
	for _, r := range results {
		j.logger.WithFields(map[string]interface{}{
			"view":     r.View,
			"final":    string(r.Final),
			"attempts": len(r.Attempts),
		}).Info("View refresh finished")
	}
	return err
}

// QualityCheckJob records a data quality snapshot against the previous one
type QualityCheckJob struct {
	gate   *quality.QualityGate
	repo   *quality.Repository
	batch  *PITBatchJob // 기준일 계산 공유
	logger *logger.Logger
}

// NewQualityCheckJob creates a new quality check job
func NewQualityCheckJob(gate *quality.QualityGate, repo *quality.Repository, batch *PITBatchJob, log *logger.Logger) *QualityCheckJob {
	return &QualityCheckJob{
		gate:   gate,
		repo:   repo,
		batch:  batch,
		logger: log,
	}
}

// Name returns the job name
func (j *QualityCheckJob) Name() string {
	return "quality_check"
}

// Schedule returns the cron schedule (weekdays 9:15 PM KST)
func (j *QualityCheckJob) Schedule() string {
	return "0 15 21 * * 1-5"
}

// Run executes the quality check
func (j *QualityCheckJob) Run(ctx context.Context) error {
	asOf := j.batch.AsOf()

	previous, err := j.repo.GetLatestBefore(ctx, asOf)
	if err != nil {
		return fmt.Errorf("load previous snapshot: %w", err)
	}

	snapshot, err := j.gate.Check(ctx, asOf, previous)
	if err != nil {
		return fmt.Errorf("quality check: %w", err)
	}

	if err := j.repo.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	log := j.logger.WithFields(map[string]interface{}{
		"as_of":         asOf.Format("2006-01-02"),
		"quality_score": snapshot.QualityScore,
		"passed":        snapshot.Passed,
	})
	if !snapshot.Passed {
		// 품질 미달은 기록만 하고 재시도하지 않는다
		log.Warn("Data quality below threshold")
		return nil
	}
	log.Info("Data quality check passed")
	return nil
}
