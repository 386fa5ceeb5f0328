package s4_window

import (
	"math"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// FindBaseline picks the comparison value for a YoY growth.
// The target period is current.PeriodEnd minus interval; candidates within
// ±tolerance are eligible and the closest wins. When the current value is not
// a formal report, a formal candidate inside the window is preferred.
// Candidates whose coverage differs from current (see Comparable) are skipped.
func FindBaseline(candidates []contracts.DecomposedQuarterValue, current contracts.DecomposedQuarterValue, interval, tolerance time.Duration) (contracts.DecomposedQuarterValue, bool) {
	best, found, _ := findBaseline(candidates, current, interval, tolerance)
	return best, found
}

// findBaseline also reports whether the window held a candidate that was
// skipped only because it is not comparable with current
func findBaseline(candidates []contracts.DecomposedQuarterValue, current contracts.DecomposedQuarterValue, interval, tolerance time.Duration) (contracts.DecomposedQuarterValue, bool, bool) {
	target := current.PeriodEnd.Add(-interval)

	var inWindow []contracts.DecomposedQuarterValue
	hasFormal := false
	mismatched := false
	for _, c := range candidates {
		if c.Metric != current.Metric || !c.PeriodEnd.Before(current.PeriodEnd) {
			continue
		}
		if absDuration(c.PeriodEnd.Sub(target)) > tolerance {
			continue
		}
		if !Comparable(current, c) {
			mismatched = true
			continue
		}
		inWindow = append(inWindow, c)
		if c.Source == contracts.SourceFormalReport {
			hasFormal = true
		}
	}

	preferFormal := current.Source != contracts.SourceFormalReport && hasFormal

	var best contracts.DecomposedQuarterValue
	found := false
	for _, c := range inWindow {
		if preferFormal && c.Source != contracts.SourceFormalReport {
			continue
		}
		if !found || closer(c, best, target) {
			best = c
			found = true
		}
	}
	return best, found, mismatched && !found
}

// Comparable reports whether two values cover the same kind of span.
// Two single-quarter values compare; otherwise the statuses must match
// (annual against annual, cumulative against cumulative).
func Comparable(a, b contracts.DecomposedQuarterValue) bool {
	if a.Status.IsSingleQuarter() && b.Status.IsSingleQuarter() {
		return true
	}
	return a.Status == b.Status
}

// closer orders baseline candidates: distance to target, then later
// disclosure, then source priority
func closer(a, b contracts.DecomposedQuarterValue, target time.Time) bool {
	da, db := absDuration(a.PeriodEnd.Sub(target)), absDuration(b.PeriodEnd.Sub(target))
	if da != db {
		return da < db
	}
	if !a.DisclosedAt.Equal(b.DisclosedAt) {
		return a.DisclosedAt.After(b.DisclosedAt)
	}
	return a.Source < b.Source
}

// Growth returns (current - baseline) / |baseline| × 100.
// A zero or non-finite baseline yields nil and false.
func Growth(current, baseline float64) (*float64, bool) {
	if baseline == 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return nil, false
	}
	g := (current - baseline) / math.Abs(baseline) * 100
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return nil, false
	}
	return &g, true
}
