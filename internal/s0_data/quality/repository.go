package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles data quality snapshot persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot saves a data quality snapshot
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	countsJSON, err := json.Marshal(snapshot.RowCounts)
	if err != nil {
		return fmt.Errorf("marshal row counts: %w", err)
	}
	resultsJSON, err := json.Marshal(snapshot.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	query := `
		INSERT INTO audit.pit_data_quality (
			snapshot_date, quality_score, passed, row_counts, results
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			quality_score = EXCLUDED.quality_score,
			passed = EXCLUDED.passed,
			row_counts = EXCLUDED.row_counts,
			results = EXCLUDED.results,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.Date,
		snapshot.QualityScore,
		snapshot.Passed,
		countsJSON,
		resultsJSON,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}

	return nil
}

// GetLatestBefore retrieves the most recent snapshot strictly before date.
// 없으면 (nil, nil).
func (r *Repository) GetLatestBefore(ctx context.Context, date time.Time) (*Snapshot, error) {
	query := `
		SELECT snapshot_date, quality_score, passed, row_counts, results
		FROM audit.pit_data_quality
		WHERE snapshot_date < $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	snapshot := &Snapshot{}
	var countsJSON, resultsJSON []byte

	err := r.pool.QueryRow(ctx, query, date).Scan(
		&snapshot.Date,
		&snapshot.QualityScore,
		&snapshot.Passed,
		&countsJSON,
		&resultsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get previous quality snapshot: %w", err)
	}

	if err := json.Unmarshal(countsJSON, &snapshot.RowCounts); err != nil {
		return nil, fmt.Errorf("unmarshal row counts: %w", err)
	}
	if err := json.Unmarshal(resultsJSON, &snapshot.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}

	return snapshot, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
