package s0_data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// BatchRunRepository implements contracts.BatchRunRepository
type BatchRunRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRunRepository creates a new batch run repository
func NewBatchRunRepository(pool *pgxpool.Pool) *BatchRunRepository {
	return &BatchRunRepository{pool: pool}
}

// SaveRun records one batch run with its full report
func (r *BatchRunRepository) SaveRun(ctx context.Context, report *contracts.BatchReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO audit.pit_batch_runs (
			run_id, started_at, finished_at, date_count,
			success_count, failure_count, diagnostic_count,
			cancelled, params_hash, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			diagnostic_count = EXCLUDED.diagnostic_count,
			cancelled = EXCLUDED.cancelled,
			report = EXCLUDED.report
	`

	_, err = r.pool.Exec(ctx, query,
		report.RunID, report.StartedAt, report.FinishedAt, len(report.Dates),
		report.TotalSuccess(), report.TotalFailure(), len(report.Diagnostics),
		report.Cancelled, report.ParamsHash, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("insert batch run: %w", err)
	}
	return nil
}
