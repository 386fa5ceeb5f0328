package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/s0_data/collector"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// CorpCodeSource lists the DART corp codes to ingest
type CorpCodeSource interface {
	GetCorpCodes(ctx context.Context, codes []string) (map[string]string, error)
}

// DataCollectionJob ingests formal financial reports daily
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	collector *collector.Collector
	stocks    CorpCodeSource
	workers   int
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(col *collector.Collector, stocks CorpCodeSource, workers int, log *logger.Logger) *DataCollectionJob {
	return &DataCollectionJob{
		collector: col,
		stocks:    stocks,
		workers:   workers,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "financial_collection"
}

// Schedule returns the cron schedule (weekdays 7 PM KST, before the PIT batch)
func (j *DataCollectionJob) Schedule() string {
	return "0 0 19 * * 1-5"
}

// Years returns the fiscal years refreshed by a run: 사업보고서는 다음 해 3월에 나오므로 전년도 포함
func (j *DataCollectionJob) Years() []int {
	y := j.now().In(kst).Year()
	return []int{y - 1, y}
}

// Run executes the data collection
func (j *DataCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled financial collection")

	corpCodes, err := j.stocks.GetCorpCodes(ctx, nil)
	if err != nil {
		return fmt.Errorf("get corp codes: %w", err)
	}

	results, err := j.collector.FetchAllFinancials(ctx, collector.TargetsFrom(corpCodes), collector.Config{
		Workers: j.workers,
		Years:   j.Years(),
	})
	if err != nil {
		return fmt.Errorf("fetch financials: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("financial collection failed for all %d stocks", failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"stocks": len(results),
		"failed": failed,
	}).Info("Scheduled financial collection completed")
	return nil
}
