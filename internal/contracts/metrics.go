package contracts

import (
	"sort"
	"time"
)

// Snapshot answers "what did we know about a company as of a date"
// ⭐ SSOT: s3_snapshot → s4_window 전달 데이터
type Snapshot struct {
	Code string    `json:"code"`
	AsOf time.Time `json:"as_of"`

	// Latest holds the reference (most recent, non-stale) value per metric
	Latest map[string]DecomposedQuarterValue `json:"latest"`

	// History holds one resolved value per (period, metric), newest first per metric.
	// Periods older than the staleness cutoff are kept here as window inputs.
	History map[string][]DecomposedQuarterValue `json:"history"`

	// Candidates holds every visible value per metric before priority resolution
	Candidates map[string][]DecomposedQuarterValue `json:"-"`
}

// Metrics returns the metric names with a reference value, sorted
func (s *Snapshot) Metrics() []string {
	names := make([]string, 0, len(s.Latest))
	for m := range s.Latest {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// QualityFlag grades a derived metric
type QualityFlag string

const (
	QualityOK           QualityFlag = "ok"
	QualityDegraded     QualityFlag = "degraded"     // 비단일분기 값 또는 기간 공백 포함
	QualityInsufficient QualityFlag = "insufficient" // TTM 계산 불가
)

// DerivedMetricSet is the windowed result for one metric of one company
type DerivedMetricSet struct {
	Code         string      `json:"code"`
	AsOf         time.Time   `json:"as_of"`
	Metric       string      `json:"metric"`
	PeriodEnd    time.Time   `json:"period_end"`
	Quarter      *float64    `json:"quarter"`
	TTM          *float64    `json:"ttm"`
	YoYGrowth    *float64    `json:"yoy_growth"`     // 단일 분기 YoY (%)
	TTMYoYGrowth *float64    `json:"ttm_yoy_growth"` // TTM YoY (%)
	Quality      QualityFlag `json:"quality"`
}

// CompositeScore combines sub-factor ranks for one company
type CompositeScore struct {
	Code       string              `json:"code"`
	AsOf       time.Time           `json:"as_of"`
	Ranks      map[string]*float64 `json:"ranks"` // nil = 결측
	Score      float64             `json:"score"`
	WeightSum  float64             `json:"weight_sum"`
	LowQuality bool                `json:"low_quality"`
	Rank       int                 `json:"rank"`
}

// EntityResult is everything computed for one company at one as-of date
type EntityResult struct {
	Code        string                   `json:"code"`
	AsOf        time.Time                `json:"as_of"`
	Decomposed  []DecomposedQuarterValue `json:"decomposed"`
	Snapshot    *Snapshot                `json:"snapshot,omitempty"`
	Derived     []DerivedMetricSet       `json:"derived"`
	Diagnostics []Diagnostic             `json:"diagnostics"`
}

// DerivedFor returns the derived set for a metric
func (r *EntityResult) DerivedFor(metric string) (DerivedMetricSet, bool) {
	for _, d := range r.Derived {
		if d.Metric == metric {
			return d, true
		}
	}
	return DerivedMetricSet{}, false
}

// Float returns a pointer to v, used for nullable metrics
func Float(v float64) *float64 {
	return &v
}
