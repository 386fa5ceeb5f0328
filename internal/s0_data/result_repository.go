package s0_data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/database"
)

// ResultRepository implements contracts.ResultRepository
// ⭐ SSOT: PIT 산출물 저장소는 여기서만
//
// 모든 쓰기는 (종목, 기준일) 또는 (기준일) 단위 delete-then-insert.
// 부분 수정(patch)은 하지 않는다.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new result repository
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ReplaceEntityResult atomically replaces the decomposed series and derived
// metrics of one entity at one as-of date
func (r *ResultRepository) ReplaceEntityResult(ctx context.Context, result *contracts.EntityResult) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM pit.decomposed_quarters WHERE stock_code = $1 AND as_of = $2`,
			result.Code, result.AsOf,
		); err != nil {
			return fmt.Errorf("delete decomposed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM pit.derived_metrics WHERE stock_code = $1 AND as_of = $2`,
			result.Code, result.AsOf,
		); err != nil {
			return fmt.Errorf("delete derived: %w", err)
		}

		if len(result.Decomposed) > 0 {
			rows := make([][]any, 0, len(result.Decomposed))
			for _, v := range result.Decomposed {
				rows = append(rows, []any{
					v.Code, result.AsOf, v.FiscalYear, v.Quarter, v.PeriodEnd, v.Metric,
					v.Value, v.Status.String(), int(v.Source), v.DisclosedAt,
				})
			}
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"pit", "decomposed_quarters"},
				[]string{"stock_code", "as_of", "fiscal_year", "quarter", "period_end", "metric",
					"value", "status", "source_kind", "disclosed_at"},
				pgx.CopyFromRows(rows),
			); err != nil {
				return fmt.Errorf("copy decomposed: %w", err)
			}
		}

		query := `
			INSERT INTO pit.derived_metrics (
				stock_code, as_of, metric, period_end, quarter_value,
				ttm, yoy_growth, ttm_yoy_growth, quality, diagnostics, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		`
		for _, d := range result.Derived {
			diagJSON, err := json.Marshal(diagnosticsFor(result.Diagnostics, d.Metric))
			if err != nil {
				return fmt.Errorf("marshal diagnostics: %w", err)
			}
			if _, err := tx.Exec(ctx, query,
				d.Code, d.AsOf, d.Metric, d.PeriodEnd, d.Quarter,
				d.TTM, d.YoYGrowth, d.TTMYoYGrowth, string(d.Quality), diagJSON,
			); err != nil {
				return fmt.Errorf("insert derived %s: %w", d.Metric, err)
			}
		}
		return nil
	})
}

// ClearEntityResults deletes the decomposed series and derived metrics of
// codes at asOf. Used for entities that are no longer eligible at that date.
func (r *ResultRepository) ClearEntityResults(ctx context.Context, asOf time.Time, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM pit.decomposed_quarters WHERE as_of = $1 AND stock_code = ANY($2)`,
			asOf, codes,
		); err != nil {
			return fmt.Errorf("clear decomposed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM pit.derived_metrics WHERE as_of = $1 AND stock_code = ANY($2)`,
			asOf, codes,
		); err != nil {
			return fmt.Errorf("clear derived: %w", err)
		}
		return nil
	})
}

// ReplaceScores atomically replaces the composite scores of one as-of date
func (r *ResultRepository) ReplaceScores(ctx context.Context, asOf time.Time, scores []contracts.CompositeScore) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pit.composite_scores WHERE as_of = $1`, asOf); err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}

		query := `
			INSERT INTO pit.composite_scores (
				stock_code, as_of, ranks, score, weight_sum, low_quality, rank, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`
		batch := &pgx.Batch{}
		for _, s := range scores {
			ranksJSON, err := json.Marshal(s.Ranks)
			if err != nil {
				return fmt.Errorf("marshal ranks: %w", err)
			}
			batch.Queue(query, s.Code, asOf, ranksJSON, s.Score, s.WeightSum, s.LowQuality, s.Rank)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert scores: %w", err)
		}
		return nil
	})
}

// GetScores retrieves the composite scores of one as-of date in rank order
func (r *ResultRepository) GetScores(ctx context.Context, asOf time.Time) ([]contracts.CompositeScore, error) {
	query := `
		SELECT stock_code, as_of, ranks, score, weight_sum, low_quality, rank
		FROM pit.composite_scores
		WHERE as_of = $1
		ORDER BY rank
	`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []contracts.CompositeScore
	for rows.Next() {
		var (
			s         contracts.CompositeScore
			ranksJSON []byte
		)
		if err := rows.Scan(&s.Code, &s.AsOf, &ranksJSON, &s.Score, &s.WeightSum, &s.LowQuality, &s.Rank); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if err := json.Unmarshal(ranksJSON, &s.Ranks); err != nil {
			return nil, fmt.Errorf("unmarshal ranks for %s: %w", s.Code, err)
		}
		scores = append(scores, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return scores, nil
}

// diagnosticsFor keeps the diagnostics of one metric (entity-level ones included)
func diagnosticsFor(diags []contracts.Diagnostic, metric string) []contracts.Diagnostic {
	out := make([]contracts.Diagnostic, 0)
	for _, d := range diags {
		if d.Metric == metric || d.Metric == "" {
			out = append(out, d)
		}
	}
	return out
}
