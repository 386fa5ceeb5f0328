package s0_data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// DisclosureRepository implements contracts.DisclosureRepository
// ⭐ SSOT: 공시 재무 데이터 저장소는 여기서만
//
// data.financial_disclosures 는 long format: 공시 1건 × 계정 1개 = 1 row
type DisclosureRepository struct {
	pool *pgxpool.Pool
}

// NewDisclosureRepository creates a new disclosure repository
func NewDisclosureRepository(pool *pgxpool.Pool) *DisclosureRepository {
	return &DisclosureRepository{pool: pool}
}

// recordKey identifies one disclosure
type recordKey struct {
	periodEnd   time.Time
	disclosedAt time.Time
	source      contracts.SourceKind
}

// GetVisibleByCode retrieves every disclosure of a code published on or before asOf
func (r *DisclosureRepository) GetVisibleByCode(ctx context.Context, code string, asOf time.Time) ([]*contracts.DisclosureRecord, error) {
	query := `
		SELECT period_end, disclosed_at, source_kind, metric, value, value_low, value_high
		FROM data.financial_disclosures
		WHERE stock_code = $1 AND disclosed_at <= $2
		ORDER BY period_end, disclosed_at, source_kind, metric
	`

	rows, err := r.pool.Query(ctx, query, code, asOf)
	if err != nil {
		return nil, fmt.Errorf("query disclosures: %w", err)
	}
	defer rows.Close()

	var records []*contracts.DisclosureRecord
	index := make(map[recordKey]*contracts.DisclosureRecord)
	for rows.Next() {
		var (
			key           recordKey
			source        int
			metric        string
			value, lo, hi *float64
		)
		if err := rows.Scan(&key.periodEnd, &key.disclosedAt, &source, &metric, &value, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan disclosure: %w", err)
		}
		key.source = contracts.SourceKind(source)

		rec, ok := index[key]
		if !ok {
			rec = &contracts.DisclosureRecord{
				Code:        code,
				PeriodEnd:   key.periodEnd,
				DisclosedAt: key.disclosedAt,
				Source:      key.source,
				Values:      make(map[string]float64),
			}
			index[key] = rec
			records = append(records, rec)
		}

		switch {
		case value != nil:
			rec.Values[metric] = *value
		case lo != nil || hi != nil:
			if rec.Ranges == nil {
				rec.Ranges = make(map[string]contracts.GuidanceRange)
			}
			rec.Ranges[metric] = contracts.GuidanceRange{Low: lo, High: hi}
		default:
			// 계정은 공시됐으나 값이 비수치
			rec.Values[metric] = math.NaN()
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// Save saves a single disclosure (all its metrics) in one transaction.
// Disclosures are immutable: an existing row is left untouched.
func (r *DisclosureRepository) Save(ctx context.Context, record *contracts.DisclosureRecord) error {
	return r.SaveBatch(ctx, []*contracts.DisclosureRecord{record})
}

// SaveBatch saves multiple disclosures in one transaction
func (r *DisclosureRepository) SaveBatch(ctx context.Context, records []*contracts.DisclosureRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.financial_disclosures (
			stock_code, period_end, disclosed_at, source_kind, metric,
			value, value_low, value_high, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (stock_code, period_end, disclosed_at, source_kind, metric) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		if !rec.Source.Valid() {
			return fmt.Errorf("disclosure %s %s: invalid source kind %d", rec.Code, rec.PeriodEnd.Format("2006-01-02"), rec.Source)
		}
		for _, metric := range rec.Metrics() {
			var value, lo, hi *float64
			if v, ok := rec.Values[metric]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				value = &v
			}
			if rg, ok := rec.Ranges[metric]; ok {
				lo, hi = rg.Low, rg.High
			}
			_, err := tx.Exec(ctx, query,
				rec.Code, rec.PeriodEnd, rec.DisclosedAt, int(rec.Source), metric,
				value, lo, hi,
			)
			if err != nil {
				return fmt.Errorf("insert disclosure %s/%s: %w", rec.Code, metric, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
