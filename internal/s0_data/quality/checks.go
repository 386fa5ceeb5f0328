package quality

import (
	"fmt"
	"time"
)

// CheckKind identifies a data quality check
type CheckKind int

const (
	KindRowCount CheckKind = iota + 1
	KindCoverage
	KindFreshness
)

func (k CheckKind) String() string {
	switch k {
	case KindRowCount:
		return "row_count"
	case KindCoverage:
		return "coverage"
	case KindFreshness:
		return "freshness"
	}
	return fmt.Sprintf("check(%d)", int(k))
}

// CheckResult is the outcome of one check
type CheckResult struct {
	Kind     CheckKind `json:"kind"`
	Name     string    `json:"name"`
	Current  float64   `json:"current"`
	Previous float64   `json:"previous,omitempty"`
	Passed   bool      `json:"passed"`
	Message  string    `json:"message"`
}

// CheckRowCount compares a row count against the previous run.
// previous는 호출자가 명시적으로 넘긴다 (인스턴스 상태 없음). nil이면 첫 실행.
// 감소 비율이 maxDrop을 넘으면 실패.
func CheckRowCount(name string, current int64, previous *int64, maxDrop float64) CheckResult {
	res := CheckResult{
		Kind:    KindRowCount,
		Name:    name,
		Current: float64(current),
		Passed:  true,
	}

	if previous == nil {
		res.Passed = current > 0
		res.Message = fmt.Sprintf("first run: %d rows", current)
		return res
	}

	res.Previous = float64(*previous)
	if *previous <= 0 {
		res.Passed = current >= 0
		res.Message = fmt.Sprintf("%d rows (previous empty)", current)
		return res
	}

	drop := float64(*previous-current) / float64(*previous)
	if drop > maxDrop {
		res.Passed = false
		res.Message = fmt.Sprintf("rows dropped %.1f%% (%d -> %d)", drop*100, *previous, current)
		return res
	}

	res.Message = fmt.Sprintf("%d rows (previous %d)", current, *previous)
	return res
}

// CheckCoverage checks the covered fraction of a population
func CheckCoverage(name string, covered, total int, minCoverage float64) CheckResult {
	res := CheckResult{Kind: KindCoverage, Name: name}

	if total <= 0 {
		res.Message = "empty population"
		return res
	}

	ratio := float64(covered) / float64(total)
	res.Current = ratio
	res.Passed = ratio >= minCoverage
	res.Message = fmt.Sprintf("%d/%d covered (%.1f%%, min %.1f%%)", covered, total, ratio*100, minCoverage*100)
	return res
}

// CheckFreshness checks that the latest disclosure is not older than maxAge at asOf
func CheckFreshness(name string, latest *time.Time, asOf time.Time, maxAge time.Duration) CheckResult {
	res := CheckResult{Kind: KindFreshness, Name: name}

	if latest == nil {
		res.Message = "no data"
		return res
	}

	age := asOf.Sub(*latest)
	res.Current = age.Hours() / 24
	res.Passed = age <= maxAge
	res.Message = fmt.Sprintf("latest %s (%.0f days old)", latest.Format("2006-01-02"), res.Current)
	return res
}
