package s5_scoring

import (
	"fmt"
	"strings"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// FactorKind is the closed set of sub-factor shapes
type FactorKind int

const (
	// FactorQuarterYoY is the single-quarter YoY growth of a metric
	FactorQuarterYoY FactorKind = iota + 1
	// FactorTTMYoY is the YoY growth of a metric's TTM
	FactorTTMYoY
	// FactorTTMRatio is TTM(metric) / TTM(denominator), e.g. operating margin
	FactorTTMRatio
)

func (k FactorKind) String() string {
	switch k {
	case FactorQuarterYoY:
		return "quarter_yoy"
	case FactorTTMYoY:
		return "ttm_yoy"
	case FactorTTMRatio:
		return "ttm_ratio"
	}
	return fmt.Sprintf("factor(%d)", int(k))
}

// ParseFactorKind converts a config name to a FactorKind
func ParseFactorKind(name string) (FactorKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quarter_yoy":
		return FactorQuarterYoY, nil
	case "ttm_yoy":
		return FactorTTMYoY, nil
	case "ttm_ratio":
		return FactorTTMRatio, nil
	}
	return 0, fmt.Errorf("unknown factor kind %q", name)
}

// Factor is one weighted sub-factor of the composite
type Factor struct {
	Name           string
	Kind           FactorKind
	Metric         string
	Denominator    string // FactorTTMRatio 전용
	Weight         float64
	HigherIsBetter bool
}

// DefaultFactors returns the growth-and-margin composite used when no
// parameter file is given
func DefaultFactors() []Factor {
	return []Factor{
		{Name: "revenue_yoy", Kind: FactorQuarterYoY, Metric: contracts.MetricRevenue, Weight: 0.25, HigherIsBetter: true},
		{Name: "operating_profit_yoy", Kind: FactorQuarterYoY, Metric: contracts.MetricOperatingProfit, Weight: 0.25, HigherIsBetter: true},
		{Name: "net_income_yoy", Kind: FactorQuarterYoY, Metric: contracts.MetricNetIncomeParent, Weight: 0.25, HigherIsBetter: true},
		{Name: "operating_margin_ttm", Kind: FactorTTMRatio, Metric: contracts.MetricOperatingProfit, Denominator: contracts.MetricRevenue, Weight: 0.25, HigherIsBetter: true},
	}
}

// Extract returns the raw factor value for one entity, or nil when it is
// missing. An undefined ratio or a degraded TTM also returns a diagnostic.
func (f Factor) Extract(result *contracts.EntityResult) (*float64, *contracts.Diagnostic) {
	if result == nil {
		return nil, nil
	}
	set, ok := result.DerivedFor(f.Metric)
	if !ok {
		return nil, nil
	}

	switch f.Kind {
	case FactorQuarterYoY:
		return set.YoYGrowth, nil
	case FactorTTMYoY:
		return set.TTMYoYGrowth, nil
	case FactorTTMRatio:
		den, ok := result.DerivedFor(f.Denominator)
		if set.TTM == nil || !ok || den.TTM == nil {
			return nil, nil
		}
		if set.Quality == contracts.QualityDegraded || den.Quality == contracts.QualityDegraded {
			return nil, &contracts.Diagnostic{
				Kind:    contracts.DiagMissingInput,
				Code:    result.Code,
				Period:  set.PeriodEnd,
				Metric:  f.Metric,
				Message: fmt.Sprintf("%s: degraded TTM treated as missing", f.Name),
			}
		}
		if *den.TTM == 0 {
			return nil, &contracts.Diagnostic{
				Kind:    contracts.DiagUndefinedRatio,
				Code:    result.Code,
				Period:  set.PeriodEnd,
				Metric:  f.Metric,
				Message: fmt.Sprintf("%s: TTM %s is zero", f.Name, f.Denominator),
			}
		}
		return contracts.Float(*set.TTM / *den.TTM), nil
	}
	return nil, nil
}
