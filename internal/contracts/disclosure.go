package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SourceKind identifies where a financial disclosure came from.
// 숫자가 곧 우선순위: 낮을수록 권위 있음
type SourceKind int

const (
	SourceFormalReport       SourceKind = 1 // 정기보고서 (사업/반기/분기)
	SourcePreliminaryExpress SourceKind = 2 // 잠정실적 공시
	SourceForwardGuidance    SourceKind = 3 // 실적 전망 (가이던스)
)

// AllSourceKinds lists every source kind in priority order
var AllSourceKinds = []SourceKind{SourceFormalReport, SourcePreliminaryExpress, SourceForwardGuidance}

// Priority returns the source priority (1 = best)
func (s SourceKind) Priority() int {
	return int(s)
}

// Valid reports whether s is one of the known source kinds
func (s SourceKind) Valid() bool {
	switch s {
	case SourceFormalReport, SourcePreliminaryExpress, SourceForwardGuidance:
		return true
	}
	return false
}

func (s SourceKind) String() string {
	switch s {
	case SourceFormalReport:
		return "formal_report"
	case SourcePreliminaryExpress:
		return "preliminary_express"
	case SourceForwardGuidance:
		return "forward_guidance"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSourceKind converts a stored name back to a SourceKind
func ParseSourceKind(name string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "formal_report", "formal":
		return SourceFormalReport, nil
	case "preliminary_express", "express":
		return SourcePreliminaryExpress, nil
	case "forward_guidance", "guidance", "forecast":
		return SourceForwardGuidance, nil
	}
	return 0, fmt.Errorf("unknown source kind %q", name)
}

// Metric names shared by ingestion, decomposition and scoring
const (
	MetricRevenue         = "revenue"
	MetricCostOfSales     = "cost_of_sales"
	MetricOperatingProfit = "operating_profit"
	MetricNetIncomeParent = "net_income_parent"
	MetricIncomeTax       = "income_tax"
)

// GuidanceRange is a forward-guidance range for one metric
type GuidanceRange struct {
	Low  *float64
	High *float64
}

// Midpoint returns the range midpoint. A one-sided range uses the bound it has.
func (g GuidanceRange) Midpoint() (float64, bool) {
	switch {
	case isNumber(g.Low) && isNumber(g.High):
		return (*g.Low + *g.High) / 2, true
	case isNumber(g.Low):
		return *g.Low, true
	case isNumber(g.High):
		return *g.High, true
	}
	return 0, false
}

// DisclosureRecord is one raw disclosure as ingested.
// Values are cumulative since fiscal-year start. Records are never mutated;
// a later disclosure for the same period supersedes an earlier one.
type DisclosureRecord struct {
	Code        string
	PeriodEnd   time.Time
	DisclosedAt time.Time
	Source      SourceKind
	Values      map[string]float64       // 결측: 키 없음, 비수치: NaN/Inf
	Ranges      map[string]GuidanceRange // ForwardGuidance 전용
}

// DisclosureDate implements Candidate
func (r *DisclosureRecord) DisclosureDate() time.Time { return r.DisclosedAt }

// SourceKind implements Candidate
func (r *DisclosureRecord) SourceKind() SourceKind { return r.Source }

// FiscalYear returns the fiscal year of the reporting period
func (r *DisclosureRecord) FiscalYear() int {
	year, _ := QuarterOf(r.PeriodEnd)
	return year
}

// Quarter returns the quarter number (1-4) of the reporting period
func (r *DisclosureRecord) Quarter() int {
	_, q := QuarterOf(r.PeriodEnd)
	return q
}

// Value returns the cumulative value for a metric.
// For ForwardGuidance the range midpoint is used when no point value exists.
func (r *DisclosureRecord) Value(metric string) (float64, bool) {
	if v, ok := r.Values[metric]; ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	if rg, ok := r.Ranges[metric]; ok {
		return rg.Midpoint()
	}
	return 0, false
}

// HasMetric reports whether the record mentions the metric at all
func (r *DisclosureRecord) HasMetric(metric string) bool {
	if _, ok := r.Values[metric]; ok {
		return true
	}
	_, ok := r.Ranges[metric]
	return ok
}

// Metrics returns every metric name the record mentions
func (r *DisclosureRecord) Metrics() []string {
	seen := make(map[string]struct{}, len(r.Values)+len(r.Ranges))
	names := make([]string, 0, len(r.Values)+len(r.Ranges))
	for m := range r.Values {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			names = append(names, m)
		}
	}
	for m := range r.Ranges {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			names = append(names, m)
		}
	}
	return names
}

// QuarterOf maps a period end date to (fiscal year, quarter).
// Fiscal years follow the calendar year; months map to ceil(month/3).
func QuarterOf(periodEnd time.Time) (int, int) {
	return periodEnd.Year(), (int(periodEnd.Month())-1)/3 + 1
}

// QuarterEnd returns the calendar quarter end date for a year/quarter
func QuarterEnd(year, quarter int) time.Time {
	return time.Date(year, time.Month(quarter*3+1), 0, 0, 0, 0, 0, time.UTC)
}

// Entity is a listed company with its listing window
type Entity struct {
	Code          string
	Name          string
	ListingDate   time.Time
	DelistingDate *time.Time
}

// EligibleAt reports whether the entity was listed and not yet delisted at t
func (e Entity) EligibleAt(t time.Time) bool {
	if e.ListingDate.IsZero() || e.ListingDate.After(t) {
		return false
	}
	if e.DelistingDate != nil && !e.DelistingDate.After(t) {
		return false
	}
	return true
}

func isNumber(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
