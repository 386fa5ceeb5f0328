package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QualityGate validates PIT input and output data
type QualityGate struct {
	db     *pgxpool.Pool
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinDisclosureCoverage float64 `yaml:"min_disclosure_coverage"` // 0.80
	CoverageWindowDays    int     `yaml:"coverage_window_days"`    // 180
	MaxRowDrop            float64 `yaml:"max_row_drop"`            // 0.05
	MaxStalenessDays      int     `yaml:"max_staleness_days"`      // 120
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinDisclosureCoverage: 0.80,
		CoverageWindowDays:    180,
		MaxRowDrop:            0.05,
		MaxStalenessDays:      120,
	}
}

// Snapshot is the quality state of one as-of date
type Snapshot struct {
	Date         time.Time        `json:"date"`
	RowCounts    map[string]int64 `json:"row_counts"`
	Results      []CheckResult    `json:"results"`
	QualityScore float64          `json:"quality_score"`
	Passed       bool             `json:"passed"`
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(db *pgxpool.Pool, config Config) *QualityGate {
	return &QualityGate{
		db:     db,
		config: config,
	}
}

// Check validates data quality for a given date.
// previous는 직전 스냅샷 (없으면 nil). 게이트 자체는 상태를 갖지 않는다.
// ⭐ SSOT: S0 품질 검증
func (g *QualityGate) Check(ctx context.Context, date time.Time, previous *Snapshot) (*Snapshot, error) {
	counts, err := g.countRows(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	covered, total, err := g.countCoverage(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check coverage: %w", err)
	}

	latest, err := g.latestDisclosure(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check freshness: %w", err)
	}

	return Evaluate(g.config, date, counts, covered, total, latest, previous), nil
}

// Evaluate runs every check over already-collected figures
func Evaluate(cfg Config, date time.Time, counts map[string]int64, covered, total int, latest *time.Time, previous *Snapshot) *Snapshot {
	snapshot := &Snapshot{
		Date:      date,
		RowCounts: counts,
	}

	for _, table := range sortedKeys(counts) {
		var prev *int64
		if previous != nil {
			if v, ok := previous.RowCounts[table]; ok {
				prev = &v
			}
		}
		snapshot.Results = append(snapshot.Results, CheckRowCount(table, counts[table], prev, cfg.MaxRowDrop))
	}

	snapshot.Results = append(snapshot.Results,
		CheckCoverage("formal_disclosure", covered, total, cfg.MinDisclosureCoverage),
		CheckFreshness("latest_disclosure", latest, date, time.Duration(cfg.MaxStalenessDays)*24*time.Hour),
	)

	snapshot.QualityScore = calculateScore(snapshot.Results)
	snapshot.Passed = true
	for _, r := range snapshot.Results {
		if !r.Passed {
			snapshot.Passed = false
			break
		}
	}
	return snapshot
}

// countRows returns the row count of every PIT table visible at date
func (g *QualityGate) countRows(ctx context.Context, date time.Time) (map[string]int64, error) {
	queries := map[string]string{
		"data.financial_disclosures": `SELECT COUNT(*) FROM data.financial_disclosures WHERE disclosed_at <= $1`,
		"pit.derived_metrics":        `SELECT COUNT(*) FROM pit.derived_metrics WHERE as_of = $1`,
		"pit.composite_scores":       `SELECT COUNT(*) FROM pit.composite_scores WHERE as_of = $1`,
	}

	counts := make(map[string]int64, len(queries))
	for table, query := range queries {
		var n int64
		if err := g.db.QueryRow(ctx, query, date).Scan(&n); err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// countCoverage returns how many listed stocks have a formal report within the window
func (g *QualityGate) countCoverage(ctx context.Context, date time.Time) (int, int, error) {
	query := `
		SELECT
			COUNT(DISTINCT fd.stock_code),
			COUNT(DISTINCT s.code)
		FROM data.stocks s
		LEFT JOIN data.financial_disclosures fd ON s.code = fd.stock_code
			AND fd.source_kind = 1
			AND fd.disclosed_at <= $1
			AND fd.disclosed_at > ($1::date - make_interval(days => $2))
		WHERE s.listing_date <= $1
		  AND (s.delisting_date IS NULL OR s.delisting_date > $1)
	`

	var covered, total int
	if err := g.db.QueryRow(ctx, query, date, g.config.CoverageWindowDays).Scan(&covered, &total); err != nil {
		return 0, 0, fmt.Errorf("query coverage: %w", err)
	}
	return covered, total, nil
}

func (g *QualityGate) latestDisclosure(ctx context.Context, date time.Time) (*time.Time, error) {
	var latest *time.Time
	query := `SELECT MAX(disclosed_at) FROM data.financial_disclosures WHERE disclosed_at <= $1`
	if err := g.db.QueryRow(ctx, query, date).Scan(&latest); err != nil {
		return nil, fmt.Errorf("query latest disclosure: %w", err)
	}
	return latest, nil
}

// calculateScore is the weighted share of passed checks
func calculateScore(results []CheckResult) float64 {
	// 가중치: 커버리지 > 신선도 > 행 수
	weights := map[CheckKind]float64{
		KindCoverage:  0.5,
		KindFreshness: 0.3,
		KindRowCount:  0.2,
	}

	perKind := make(map[CheckKind][2]int) // [passed, total]
	for _, r := range results {
		c := perKind[r.Kind]
		c[1]++
		if r.Passed {
			c[0]++
		}
		perKind[r.Kind] = c
	}

	score, weightSum := 0.0, 0.0
	for kind, c := range perKind {
		w := weights[kind]
		score += w * float64(c[0]) / float64(c[1])
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return score / weightSum
}
