package s2_decompose

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Decomposer converts cumulative disclosures into single-quarter values
// ⭐ SSOT: 누적 → 단일 분기 변환은 여기서만
type Decomposer struct {
	logger *logger.Logger
}

// NewDecomposer creates a new decomposer
func NewDecomposer(log *logger.Logger) *Decomposer {
	return &Decomposer{
		logger: log.WithField("module", "decompose"),
	}
}

// Result is the decomposed series of one company plus what went wrong on the way
type Result struct {
	Values      []contracts.DecomposedQuarterValue
	Diagnostics []contracts.Diagnostic
}

// yearKey groups records of one fiscal year and source kind
type yearKey struct {
	year   int
	source contracts.SourceKind
}

// Decompose decomposes every fiscal year and source of one company.
// Records must already be restricted to those visible at the as-of date.
// FormalReport years are processed first because guidance depends on them.
func (d *Decomposer) Decompose(code string, records []*contracts.DisclosureRecord) Result {
	groups := make(map[yearKey][]*contracts.DisclosureRecord)
	years := make(map[int]struct{})
	for _, rec := range records {
		if rec == nil || rec.Code != code || !rec.Source.Valid() {
			continue
		}
		k := yearKey{year: rec.FiscalYear(), source: rec.Source}
		groups[k] = append(groups[k], rec)
		years[rec.FiscalYear()] = struct{}{}
	}

	sortedYears := make([]int, 0, len(years))
	for y := range years {
		sortedYears = append(sortedYears, y)
	}
	sort.Ints(sortedYears)

	var res Result
	for _, year := range sortedYears {
		formal, diags := d.DecomposeYear(code, year, contracts.SourceFormalReport, groups[yearKey{year, contracts.SourceFormalReport}])
		res.Values = append(res.Values, formal...)
		res.Diagnostics = append(res.Diagnostics, diags...)

		express, diags := d.DecomposeYear(code, year, contracts.SourcePreliminaryExpress, groups[yearKey{year, contracts.SourcePreliminaryExpress}])
		res.Values = append(res.Values, express...)
		res.Diagnostics = append(res.Diagnostics, diags...)

		guidance, diags := d.DecomposeGuidance(code, year, groups[yearKey{year, contracts.SourceForwardGuidance}], formal)
		res.Values = append(res.Values, guidance...)
		res.Diagnostics = append(res.Diagnostics, diags...)
	}

	SortValues(res.Values)
	return res
}

// DecomposeYear applies the classified rule to one (year, source) group.
// Each metric is classified and decomposed independently.
func (d *Decomposer) DecomposeYear(code string, year int, source contracts.SourceKind, records []*contracts.DisclosureRecord) ([]contracts.DecomposedQuarterValue, []contracts.Diagnostic) {
	if len(records) == 0 {
		return nil, nil
	}
	if source == contracts.SourceForwardGuidance {
		return d.DecomposeGuidance(code, year, records, nil)
	}

	byQuarter := latestPerQuarter(records)
	var values []contracts.DecomposedQuarterValue
	var diags []contracts.Diagnostic

	for _, metric := range metricUnion(byQuarter) {
		present, missing := presentQuarters(byQuarter, metric)
		for _, q := range missing {
			diags = append(diags, missingDiag(code, byQuarter[q], metric, q))
		}
		if len(present) == 0 {
			continue
		}

		e := emitter{code: code, year: year, metric: metric, source: source, byQuarter: byQuarter}
		cum := func(q int) float64 {
			v, _ := byQuarter[q].Value(metric)
			return v
		}

		rule := Classify(present)
		switch rule {
		case RuleDirectQ1:
			e.emit(1, cum(1), contracts.StatusDirectSingle, 1)
		case RuleAnnualOnly:
			e.emit(4, cum(4), contracts.StatusAnnualOnly, 4)
		case RuleIsolatedCumulative:
			q := present[0]
			e.emit(q, cum(q), contracts.StatusCumulativeUnconvertible, q)
		case RuleFirstHalf:
			e.emit(1, cum(1), contracts.StatusDirectSingle, 1)
			e.emit(2, cum(2)-cum(1), contracts.StatusDirectSingle, 1, 2)
		case RuleQ1Residual:
			e.emit(1, cum(1), contracts.StatusDirectSingle, 1)
			e.emit(4, cum(4)-cum(1), contracts.StatusCalculatedResidual, 1, 4)
		case RuleHalfResidual:
			e.emit(2, cum(2), contracts.StatusCumulativeUnconvertible, 2)
			e.emit(4, cum(4)-cum(2), contracts.StatusCalculatedResidual, 2, 4)
		case RuleNineMonthResidual:
			e.emit(3, cum(3), contracts.StatusCumulativeUnconvertible, 3)
			e.emit(4, cum(4)-cum(3), contracts.StatusDirectSingle, 3, 4)
		case RuleTelescoping:
			prev := 0
			for _, q := range present {
				if prev == 0 {
					e.emit(q, cum(q), contracts.StatusDirectSingle, q)
				} else {
					e.emit(q, cum(q)-cum(prev), contracts.StatusDirectSingle, prev, q)
				}
				prev = q
			}
		case RuleIrregular:
			for _, q := range present {
				e.emit(q, cum(q), contracts.StatusCumulativeUnconvertible, q)
			}
			diags = append(diags, contracts.Diagnostic{
				Kind:    contracts.DiagIrregularPattern,
				Code:    code,
				Period:  contracts.QuarterEnd(year, present[len(present)-1]),
				Metric:  metric,
				Message: fmt.Sprintf("%s pattern %s kept unconverted", source, QuarterPattern(present)),
			})
			d.logger.WithFields(map[string]interface{}{
				"code":    code,
				"year":    year,
				"metric":  metric,
				"source":  source.String(),
				"pattern": QuarterPattern(present).String(),
			}).Debug("Irregular disclosure pattern")
		}

		values = append(values, e.values...)
	}

	return values, diags
}

// DecomposeGuidance turns forward guidance into ForecastDerived single quarters.
// The guidance midpoint is a cumulative estimate; the already-decomposed
// FormalReport values of earlier quarters of the same year are subtracted.
func (d *Decomposer) DecomposeGuidance(code string, year int, records []*contracts.DisclosureRecord, formal []contracts.DecomposedQuarterValue) ([]contracts.DecomposedQuarterValue, []contracts.Diagnostic) {
	if len(records) == 0 {
		return nil, nil
	}

	byQuarter := latestPerQuarter(records)
	quarters := sortedQuarters(byQuarter)

	var values []contracts.DecomposedQuarterValue
	var diags []contracts.Diagnostic

	for _, metric := range metricUnion(byQuarter) {
		for _, q := range quarters {
			rec := byQuarter[q]
			mid, ok := rec.Value(metric)
			if !ok {
				if rec.HasMetric(metric) {
					diags = append(diags, missingDiag(code, rec, metric, q))
				}
				continue
			}

			value := mid
			disclosedAt := rec.DisclosedAt
			if q > 1 {
				prior, priorAt, ok := formalCumulative(formal, metric, year, q-1)
				if !ok {
					diags = append(diags, contracts.Diagnostic{
						Kind:    contracts.DiagMissingInput,
						Code:    code,
						Period:  rec.PeriodEnd,
						Metric:  metric,
						Message: fmt.Sprintf("guidance for Q%d needs formal values for Q1..Q%d", q, q-1),
					})
					continue
				}
				value = mid - prior
				if priorAt.After(disclosedAt) {
					disclosedAt = priorAt
				}
			}

			values = append(values, contracts.DecomposedQuarterValue{
				Code:        code,
				FiscalYear:  year,
				Quarter:     q,
				PeriodEnd:   rec.PeriodEnd,
				Metric:      metric,
				Value:       value,
				Status:      contracts.StatusForecastDerived,
				Source:      contracts.SourceForwardGuidance,
				DisclosedAt: disclosedAt,
			})
		}
	}

	return values, diags
}

// formalCumulative rebuilds the formal cumulative value for quarters 1..upto.
// Single quarters add up; a kept-cumulative value restarts the running total.
func formalCumulative(formal []contracts.DecomposedQuarterValue, metric string, year, upto int) (float64, time.Time, bool) {
	byQuarter := make(map[int]contracts.DecomposedQuarterValue)
	for _, v := range formal {
		if v.Metric == metric && v.FiscalYear == year && v.Source == contracts.SourceFormalReport {
			byQuarter[v.Quarter] = v
		}
	}

	var cum float64
	var latest time.Time
	covered := 0
	for k := 1; k <= upto; k++ {
		v, ok := byQuarter[k]
		if !ok {
			continue
		}
		switch v.Status {
		case contracts.StatusDirectSingle:
			if covered != k-1 {
				continue
			}
			cum += v.Value
		case contracts.StatusCumulativeUnconvertible:
			cum = v.Value
			latest = time.Time{}
		case contracts.StatusAnnualOnly, contracts.StatusCalculatedResidual, contracts.StatusForecastDerived:
			continue
		}
		covered = k
		if v.DisclosedAt.After(latest) {
			latest = v.DisclosedAt
		}
	}
	return cum, latest, covered == upto
}

// emitter collects the values of one metric within one (year, source) group
type emitter struct {
	code      string
	year      int
	metric    string
	source    contracts.SourceKind
	byQuarter map[int]*contracts.DisclosureRecord
	values    []contracts.DecomposedQuarterValue
}

// emit appends a value for quarter q; inputs are the quarters whose records
// were used, so the disclosure date is the latest of them
func (e *emitter) emit(q int, value float64, status contracts.ConversionStatus, inputs ...int) {
	var disclosedAt time.Time
	for _, in := range inputs {
		if rec := e.byQuarter[in]; rec != nil && rec.DisclosedAt.After(disclosedAt) {
			disclosedAt = rec.DisclosedAt
		}
	}
	e.values = append(e.values, contracts.DecomposedQuarterValue{
		Code:        e.code,
		FiscalYear:  e.year,
		Quarter:     q,
		PeriodEnd:   e.byQuarter[q].PeriodEnd,
		Metric:      e.metric,
		Value:       value,
		Status:      status,
		Source:      e.source,
		DisclosedAt: disclosedAt,
	})
}

// latestPerQuarter keeps the latest disclosure per quarter (restatements win)
func latestPerQuarter(records []*contracts.DisclosureRecord) map[int]*contracts.DisclosureRecord {
	byQuarter := make(map[int]*contracts.DisclosureRecord)
	for _, rec := range records {
		q := rec.Quarter()
		cur, ok := byQuarter[q]
		if !ok || rec.DisclosedAt.After(cur.DisclosedAt) ||
			(rec.DisclosedAt.Equal(cur.DisclosedAt) && rec.PeriodEnd.After(cur.PeriodEnd)) {
			byQuarter[q] = rec
		}
	}
	return byQuarter
}

func sortedQuarters(byQuarter map[int]*contracts.DisclosureRecord) []int {
	quarters := make([]int, 0, len(byQuarter))
	for q := range byQuarter {
		quarters = append(quarters, q)
	}
	sort.Ints(quarters)
	return quarters
}

func metricUnion(byQuarter map[int]*contracts.DisclosureRecord) []string {
	seen := make(map[string]struct{})
	var metrics []string
	for _, rec := range byQuarter {
		for _, m := range rec.Metrics() {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				metrics = append(metrics, m)
			}
		}
	}
	sort.Strings(metrics)
	return metrics
}

// presentQuarters splits quarters into those with a usable value for the
// metric and those whose record lacks one
func presentQuarters(byQuarter map[int]*contracts.DisclosureRecord, metric string) (present, missing []int) {
	for _, q := range sortedQuarters(byQuarter) {
		if _, ok := byQuarter[q].Value(metric); ok {
			present = append(present, q)
		} else {
			missing = append(missing, q)
		}
	}
	return present, missing
}

func missingDiag(code string, rec *contracts.DisclosureRecord, metric string, q int) contracts.Diagnostic {
	msg := fmt.Sprintf("Q%d %s value absent", q, rec.Source)
	if rec.HasMetric(metric) {
		msg = fmt.Sprintf("Q%d %s value not numeric", q, rec.Source)
	}
	return contracts.Diagnostic{
		Kind:    contracts.DiagMissingInput,
		Code:    code,
		Period:  rec.PeriodEnd,
		Metric:  metric,
		Message: msg,
	}
}

// SortValues orders values by period end, metric, source priority.
// The order is part of the idempotence contract.
func SortValues(values []contracts.DecomposedQuarterValue) {
	sort.SliceStable(values, func(i, j int) bool {
		a, b := values[i], values[j]
		if !a.PeriodEnd.Equal(b.PeriodEnd) {
			return a.PeriodEnd.Before(b.PeriodEnd)
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Quarter < b.Quarter
	})
}
