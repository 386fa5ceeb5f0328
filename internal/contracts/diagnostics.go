package contracts

import (
	"fmt"
	"time"
)

// DiagnosticKind classifies a recoverable (or store-level) problem
type DiagnosticKind int

const (
	DiagMissingInput DiagnosticKind = iota + 1
	DiagIrregularPattern
	DiagUndefinedRatio
	DiagStaleSnapshot
	DiagBaselineNotFound
	DiagStoreWriteFailure
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagMissingInput:
		return "missing_input"
	case DiagIrregularPattern:
		return "irregular_disclosure_pattern"
	case DiagUndefinedRatio:
		return "undefined_ratio"
	case DiagStaleSnapshot:
		return "stale_snapshot"
	case DiagBaselineNotFound:
		return "baseline_not_found"
	case DiagStoreWriteFailure:
		return "store_write_failure"
	}
	return fmt.Sprintf("diagnostic(%d)", int(k))
}

// Fatal reports whether the kind aborts the entity commit
func (k DiagnosticKind) Fatal() bool {
	switch k {
	case DiagStoreWriteFailure:
		return true
	case DiagMissingInput, DiagIrregularPattern, DiagUndefinedRatio,
		DiagStaleSnapshot, DiagBaselineNotFound:
		return false
	}
	return false
}

// Diagnostic is a structured note attached to an entity result
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Code    string         `json:"code"`
	Period  time.Time      `json:"period,omitempty"`
	Metric  string         `json:"metric,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	period := ""
	if !d.Period.IsZero() {
		period = " " + d.Period.Format("2006-01-02")
	}
	metric := ""
	if d.Metric != "" {
		metric = " " + d.Metric
	}
	return fmt.Sprintf("[%s] %s%s%s: %s", d.Kind, d.Code, period, metric, d.Message)
}

// CountByKind tallies diagnostics per kind
func CountByKind(diags []Diagnostic) map[DiagnosticKind]int {
	counts := make(map[DiagnosticKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}
