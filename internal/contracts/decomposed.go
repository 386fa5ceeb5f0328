package contracts

import (
	"fmt"
	"time"
)

// ConversionStatus tags how a single-quarter value was obtained
type ConversionStatus int

const (
	// StatusDirectSingle is a true single-quarter value
	StatusDirectSingle ConversionStatus = iota + 1
	// StatusAnnualOnly is an annual value with no intra-year split
	StatusAnnualOnly
	// StatusCumulativeUnconvertible is a cumulative value that could not be split.
	// The number is NOT a single-quarter value.
	StatusCumulativeUnconvertible
	// StatusCalculatedResidual is annual minus an earlier cumulative,
	// covering more than one quarter
	StatusCalculatedResidual
	// StatusForecastDerived comes from forward guidance
	StatusForecastDerived
)

func (s ConversionStatus) String() string {
	switch s {
	case StatusDirectSingle:
		return "direct_single"
	case StatusAnnualOnly:
		return "annual_only"
	case StatusCumulativeUnconvertible:
		return "cumulative_unconvertible"
	case StatusCalculatedResidual:
		return "calculated_residual"
	case StatusForecastDerived:
		return "forecast_derived"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseConversionStatus converts a stored name back to a ConversionStatus
func ParseConversionStatus(name string) (ConversionStatus, error) {
	for _, s := range []ConversionStatus{
		StatusDirectSingle, StatusAnnualOnly, StatusCumulativeUnconvertible,
		StatusCalculatedResidual, StatusForecastDerived,
	} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown conversion status %q", name)
}

// IsSingleQuarter reports whether the value represents exactly one quarter
func (s ConversionStatus) IsSingleQuarter() bool {
	switch s {
	case StatusDirectSingle, StatusForecastDerived:
		return true
	case StatusAnnualOnly, StatusCumulativeUnconvertible, StatusCalculatedResidual:
		return false
	}
	return false
}

// DecomposedQuarterValue is one single-quarter slot produced by the decomposer
type DecomposedQuarterValue struct {
	Code        string           `json:"code"`
	FiscalYear  int              `json:"fiscal_year"`
	Quarter     int              `json:"quarter"`
	PeriodEnd   time.Time        `json:"period_end"`
	Metric      string           `json:"metric"`
	Value       float64          `json:"value"`
	Status      ConversionStatus `json:"status"`
	Source      SourceKind       `json:"source"`
	DisclosedAt time.Time        `json:"disclosed_at"` // 계산에 쓰인 입력 중 가장 늦은 공시일
}

// DisclosureDate implements Candidate
func (v DecomposedQuarterValue) DisclosureDate() time.Time { return v.DisclosedAt }

// SourceKind implements Candidate
func (v DecomposedQuarterValue) SourceKind() SourceKind { return v.Source }

// Candidate is anything the source priority resolver can choose between
type Candidate interface {
	DisclosureDate() time.Time
	SourceKind() SourceKind
}
