package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/external/dart"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// FinancialSource fetches key accounts of one periodic report
type FinancialSource interface {
	FetchFinancials(ctx context.Context, corpCode string, year int, report dart.ReportCode) ([]dart.FinancialAccount, error)
}

// DisclosureSink stores ingested disclosure records
type DisclosureSink interface {
	SaveBatch(ctx context.Context, records []*contracts.DisclosureRecord) error
}

// Collector orchestrates disclosure ingestion from DART
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source FinancialSource
	sink   DisclosureSink
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
	Years   []int
	Reports []dart.ReportCode // 비어 있으면 전체
}

// Target is one company to ingest
type Target struct {
	Code     string
	CorpCode string
}

// TargetsFrom builds targets from a stock code → corp code map, sorted by code
func TargetsFrom(corpCodes map[string]string) []Target {
	targets := make([]Target, 0, len(corpCodes))
	for code, corp := range corpCodes {
		targets = append(targets, Target{Code: code, CorpCode: corp})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Code < targets[j].Code })
	return targets
}

// NewCollector creates a new Collector instance
func NewCollector(source FinancialSource, sink DisclosureSink, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		sink:   sink,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	StockCode   string
	RecordCount int
	Error       error
}

// FetchAllFinancials ingests formal report records for every target
func (c *Collector) FetchAllFinancials(ctx context.Context, targets []Target, cfg Config) ([]FetchResult, error) {
	if len(cfg.Years) == 0 {
		return nil, fmt.Errorf("no fiscal years requested")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	reports := cfg.Reports
	if len(reports) == 0 {
		reports = dart.AllReportCodes
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_count": len(targets),
		"years":       cfg.Years,
		"workers":     workers,
	}).Info("Starting financial collection")

	// Create worker pool
	results := make([]FetchResult, 0, len(targets))
	resultCh := make(chan FetchResult, len(targets))
	targetCh := make(chan Target, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.financialWorker(ctx, workerID, targetCh, resultCh, cfg.Years, reports)
		}(i)
	}

	for _, t := range targets {
		targetCh <- t
	}
	close(targetCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	records := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
			records += result.RecordCount
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].StockCode < results[j].StockCode })

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"records": records,
	}).Info("Financial collection completed")

	return results, nil
}

// financialWorker processes one target at a time
func (c *Collector) financialWorker(ctx context.Context, workerID int, targetCh <-chan Target, resultCh chan<- FetchResult, years []int, reports []dart.ReportCode) {
	for t := range targetCh {
		if err := ctx.Err(); err != nil {
			resultCh <- FetchResult{StockCode: t.Code, Error: err}
			continue
		}

		records, err := c.collectTarget(ctx, t, years, reports)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":     workerID,
				"stock_code": t.Code,
			}).Error("Failed to fetch financials")
			resultCh <- FetchResult{StockCode: t.Code, Error: err}
			continue
		}

		if err := c.sink.SaveBatch(ctx, records); err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":     workerID,
				"stock_code": t.Code,
			}).Error("Failed to save disclosures")
			resultCh <- FetchResult{StockCode: t.Code, RecordCount: len(records), Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker":     workerID,
			"stock_code": t.Code,
			"count":      len(records),
		}).Debug("Fetched financials")

		resultCh <- FetchResult{StockCode: t.Code, RecordCount: len(records)}
	}
}

func (c *Collector) collectTarget(ctx context.Context, t Target, years []int, reports []dart.ReportCode) ([]*contracts.DisclosureRecord, error) {
	var records []*contracts.DisclosureRecord
	for _, year := range years {
		for _, report := range reports {
			accounts, err := c.source.FetchFinancials(ctx, t.CorpCode, year, report)
			if err != nil {
				return nil, err
			}
			record, err := dart.ToRecord(t.Code, year, report, accounts)
			if err != nil {
				return nil, fmt.Errorf("convert %d/%s: %w", year, report, err)
			}
			if record != nil {
				records = append(records, record)
			}
		}
	}
	return records, nil
}
