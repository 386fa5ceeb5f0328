package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/s1_universe"
	"github.com/wonny/aegis-pit/backend/internal/s3_snapshot"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// RunConfig holds configuration for a batch run
type RunConfig struct {
	Dates      []time.Time
	Codes      []string // 비어 있으면 전체
	BatchSize  int
	Workers    int
	ParamsHash string
}

// Runner drives the engine over dates and entities and commits results
// ⭐ SSOT: 배치 실행 조율은 여기서만
type Runner struct {
	engine      *Engine
	universe    *s1_universe.Builder
	disclosures contracts.DisclosureRepository
	entities    contracts.EntityRepository
	results     contracts.ResultRepository
	runs        contracts.BatchRunRepository // nil이면 감사 기록 생략
	logger      *logger.Logger
}

// NewRunner creates a new batch runner
func NewRunner(
	engine *Engine,
	universe *s1_universe.Builder,
	disclosures contracts.DisclosureRepository,
	entities contracts.EntityRepository,
	results contracts.ResultRepository,
	runs contracts.BatchRunRepository,
	log *logger.Logger,
) *Runner {
	return &Runner{
		engine:      engine,
		universe:    universe,
		disclosures: disclosures,
		entities:    entities,
		results:     results,
		runs:        runs,
		logger:      log.WithField("module", "runner"),
	}
}

// Run processes every requested as-of date.
// Cancellation is checked before each entity; entities already started
// finish their computation and commit. The report is returned even when
// the run was cancelled.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*contracts.BatchReport, error) {
	if len(cfg.Dates) == 0 {
		return nil, errors.New("no as-of dates given")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	report := &contracts.BatchReport{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		ParamsHash: cfg.ParamsHash,
	}
	log := r.logger.WithRun(report.RunID)

	entities, err := r.entities.GetEntities(ctx, cfg.Codes)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	dates := append([]time.Time(nil), cfg.Dates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	log.WithFields(map[string]interface{}{
		"dates":      len(dates),
		"entities":   len(entities),
		"batch_size": cfg.BatchSize,
		"workers":    cfg.Workers,
	}).Info("Starting PIT batch")

	for _, asOf := range dates {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		dateReport := r.runDate(ctx, log, asOf, entities, cfg)
		report.Dates = append(report.Dates, dateReport)
		for _, o := range dateReport.Outcomes {
			report.Diagnostics = append(report.Diagnostics, o.Diagnostics...)
		}
		if dateReport.SkippedCount > 0 {
			report.Cancelled = true
		}
	}
	report.FinishedAt = time.Now()

	if r.runs != nil {
		if err := r.runs.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			log.WithError(err).Warn("Failed to save batch run")
		}
	}

	log.WithFields(map[string]interface{}{
		"success":   report.TotalSuccess(),
		"failed":    report.TotalFailure(),
		"cancelled": report.Cancelled,
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("PIT batch completed")

	return report, nil
}

// runDate processes one as-of date: eligible entities in partitions of
// BatchSize, then the cross-sectional scores
func (r *Runner) runDate(ctx context.Context, log *logger.Logger, asOf time.Time, entities []contracts.Entity, cfg RunConfig) contracts.DateReport {
	universe := r.universe.Build(entities, asOf)
	eligible := universe.Entities

	// 기준일에 부적격인 종목의 이전 산출물 삭제 (상장/폐지일 정정 후 재실행 대비)
	if len(universe.Excluded) > 0 && ctx.Err() == nil {
		codes := make([]string, 0, len(universe.Excluded))
		for code := range universe.Excluded {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		if err := r.results.ClearEntityResults(ctx, asOf, codes); err != nil {
			log.WithAsOf(asOf).WithError(err).Warn("Failed to clear ineligible entity results")
		}
	}

	dateReport := contracts.DateReport{
		AsOf:          asOf,
		EligibleCount: len(eligible),
		Outcomes:      make([]contracts.EntityOutcome, len(eligible)),
	}
	results := make([]*contracts.EntityResult, len(eligible))

	for start := 0; start < len(eligible); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}

		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for i := start; i < end; i++ {
			i := i
			entity := eligible[i]

			// 시작 전 취소 확인
			if ctx.Err() != nil {
				dateReport.Outcomes[i] = contracts.EntityOutcome{Code: entity.Code, Skipped: true, Error: ctx.Err().Error()}
				continue
			}

			g.Go(func() error {
				if ctx.Err() != nil {
					dateReport.Outcomes[i] = contracts.EntityOutcome{Code: entity.Code, Skipped: true, Error: ctx.Err().Error()}
					return nil
				}
				// 시작한 종목은 계산과 커밋을 끝까지 수행
				outcome, result := r.processEntity(context.WithoutCancel(ctx), entity, asOf)
				dateReport.Outcomes[i] = outcome
				results[i] = result
				return nil
			})
		}
		_ = g.Wait()
	}

	var scored []*contracts.EntityResult
	for i, o := range dateReport.Outcomes {
		switch {
		case o.Skipped:
			dateReport.SkippedCount++
		case o.Success:
			dateReport.SuccessCount++
			scored = append(scored, results[i])
		case o.Excluded:
			dateReport.ExcludedCount++
		default:
			dateReport.FailureCount++
		}
	}

	// 부분 단면은 순위를 왜곡하므로 취소된 날짜는 점수 미갱신
	switch {
	case dateReport.SkippedCount > 0:
		dateReport.ScoreError = "cancelled before all entities ran, scores not replaced"
	case len(scored) == 0:
		dateReport.ScoreError = "no successful entities"
	default:
		scores, diags := r.engine.ScoreCrossSection(asOf, scored)
		if len(diags) > 0 {
			appendDiagnostics(dateReport.Outcomes, diags)
		}
		if err := r.results.ReplaceScores(context.WithoutCancel(ctx), asOf, scores); err != nil {
			dateReport.ScoreError = err.Error()
			log.WithAsOf(asOf).WithError(err).Error("Failed to replace scores")
		} else {
			dateReport.ScoreCount = len(scores)
		}
	}

	log.WithAsOf(asOf).WithFields(map[string]interface{}{
		"eligible": dateReport.EligibleCount,
		"success":  dateReport.SuccessCount,
		"failed":   dateReport.FailureCount,
		"excluded": dateReport.ExcludedCount,
		"skipped":  dateReport.SkippedCount,
		"scores":   dateReport.ScoreCount,
	}).Info("As-of date completed")

	return dateReport
}

// processEntity loads, computes and commits one entity
func (r *Runner) processEntity(ctx context.Context, entity contracts.Entity, asOf time.Time) (contracts.EntityOutcome, *contracts.EntityResult) {
	outcome := contracts.EntityOutcome{Code: entity.Code}

	records, err := r.disclosures.GetVisibleByCode(ctx, entity.Code, asOf)
	if err != nil {
		outcome.Error = fmt.Sprintf("load disclosures: %v", err)
		r.logger.WithEntity(entity.Code, asOf).WithError(err).Error("Failed to load disclosures")
		return outcome, nil
	}

	result, err := r.engine.ComputeEntity(entity, asOf, records)
	switch {
	case err == nil:
	case errors.Is(err, s3_snapshot.ErrNoCurrentData):
		outcome.Excluded = true
	default:
		outcome.Error = err.Error()
		if result != nil {
			outcome.Diagnostics = result.Diagnostics
		}
		return outcome, nil
	}

	// 제외 종목도 저장: 해당 기준일의 이전 산출물을 비운다
	if err := r.results.ReplaceEntityResult(ctx, result); err != nil {
		result.Diagnostics = append(result.Diagnostics, contracts.Diagnostic{
			Kind:    contracts.DiagStoreWriteFailure,
			Code:    entity.Code,
			Period:  asOf,
			Message: err.Error(),
		})
		outcome.Excluded = false
		outcome.Error = fmt.Sprintf("commit result: %v", err)
		outcome.Diagnostics = result.Diagnostics
		r.logger.WithEntity(entity.Code, asOf).WithError(err).Error("Failed to commit entity result")
		return outcome, nil
	}

	outcome.Success = !outcome.Excluded
	outcome.Diagnostics = result.Diagnostics
	return outcome, result
}

// appendDiagnostics attaches cross-sectional diagnostics to their entity outcome
func appendDiagnostics(outcomes []contracts.EntityOutcome, diags []contracts.Diagnostic) {
	index := make(map[string]int, len(outcomes))
	for i, o := range outcomes {
		index[o.Code] = i
	}
	for _, d := range diags {
		if i, ok := index[d.Code]; ok {
			outcomes[i].Diagnostics = append(outcomes[i].Diagnostics, d)
		}
	}
}
