package s2_decompose

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

const testCode = "005930"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(source contracts.SourceKind, year, q int, disclosed time.Time, values map[string]float64) *contracts.DisclosureRecord {
	return &contracts.DisclosureRecord{
		Code:        testCode,
		PeriodEnd:   contracts.QuarterEnd(year, q),
		DisclosedAt: disclosed,
		Source:      source,
		Values:      values,
	}
}

func revenue(v float64) map[string]float64 {
	return map[string]float64{contracts.MetricRevenue: v}
}

func pick(values []contracts.DecomposedQuarterValue, metric string, source contracts.SourceKind) []contracts.DecomposedQuarterValue {
	var out []contracts.DecomposedQuarterValue
	for _, v := range values {
		if v.Metric == metric && v.Source == source {
			out = append(out, v)
		}
	}
	return out
}

func newTestDecomposer() *Decomposer {
	return NewDecomposer(logger.NewNop())
}

func TestDecompose_Telescoping(t *testing.T) {
	records := []*contracts.DisclosureRecord{
		record(contracts.SourceFormalReport, 2023, 1, day(2023, 5, 15), revenue(10)),
		record(contracts.SourceFormalReport, 2023, 2, day(2023, 8, 14), revenue(22)),
		record(contracts.SourceFormalReport, 2023, 3, day(2023, 11, 14), revenue(35)),
		record(contracts.SourceFormalReport, 2024, 4, day(2024, 3, 20), nil), // 다른 연도, 값 없음
		record(contracts.SourceFormalReport, 2023, 4, day(2024, 3, 15), revenue(50)),
	}

	res := newTestDecomposer().Decompose(testCode, records)
	got := pick(res.Values, contracts.MetricRevenue, contracts.SourceFormalReport)
	require.Len(t, got, 4)

	want := []float64{10, 12, 13, 15}
	for i, v := range got {
		assert.Equal(t, i+1, v.Quarter)
		assert.InDelta(t, want[i], v.Value, 1e-9)
		assert.Equal(t, contracts.StatusDirectSingle, v.Status)
	}

	// Q2 = cum(H1) - cum(Q1): 두 입력 중 늦은 공시일
	assert.Equal(t, day(2023, 8, 14), got[1].DisclosedAt)
	assert.Equal(t, day(2024, 3, 15), got[3].DisclosedAt)
}

func TestDecompose_Rules(t *testing.T) {
	tests := []struct {
		name  string
		cums  map[int]float64
		want  map[int]float64
		state map[int]contracts.ConversionStatus
		diag  bool
	}{
		{
			name:  "q1 and annual",
			cums:  map[int]float64{1: 10, 4: 50},
			want:  map[int]float64{1: 10, 4: 40},
			state: map[int]contracts.ConversionStatus{1: contracts.StatusDirectSingle, 4: contracts.StatusCalculatedResidual},
		},
		{
			name:  "annual only",
			cums:  map[int]float64{4: 50},
			want:  map[int]float64{4: 50},
			state: map[int]contracts.ConversionStatus{4: contracts.StatusAnnualOnly},
		},
		{
			name:  "half alone stays cumulative",
			cums:  map[int]float64{2: 22},
			want:  map[int]float64{2: 22},
			state: map[int]contracts.ConversionStatus{2: contracts.StatusCumulativeUnconvertible},
		},
		{
			name:  "first half",
			cums:  map[int]float64{1: 10, 2: 22},
			want:  map[int]float64{1: 10, 2: 12},
			state: map[int]contracts.ConversionStatus{1: contracts.StatusDirectSingle, 2: contracts.StatusDirectSingle},
		},
		{
			name:  "half and annual",
			cums:  map[int]float64{2: 22, 4: 50},
			want:  map[int]float64{2: 22, 4: 28},
			state: map[int]contracts.ConversionStatus{2: contracts.StatusCumulativeUnconvertible, 4: contracts.StatusCalculatedResidual},
		},
		{
			name:  "nine months and annual",
			cums:  map[int]float64{3: 35, 4: 50},
			want:  map[int]float64{3: 35, 4: 15},
			state: map[int]contracts.ConversionStatus{3: contracts.StatusCumulativeUnconvertible, 4: contracts.StatusDirectSingle},
		},
		{
			name:  "irregular q1 and nine months",
			cums:  map[int]float64{1: 10, 3: 35},
			want:  map[int]float64{1: 10, 3: 35},
			state: map[int]contracts.ConversionStatus{1: contracts.StatusCumulativeUnconvertible, 3: contracts.StatusCumulativeUnconvertible},
			diag:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []*contracts.DisclosureRecord
			for q, v := range tt.cums {
				records = append(records, record(contracts.SourceFormalReport, 2023, q, contracts.QuarterEnd(2023, q).AddDate(0, 1, 15), revenue(v)))
			}

			res := newTestDecomposer().Decompose(testCode, records)
			require.Len(t, res.Values, len(tt.want))
			for _, v := range res.Values {
				assert.InDelta(t, tt.want[v.Quarter], v.Value, 1e-9, "Q%d", v.Quarter)
				assert.Equal(t, tt.state[v.Quarter], v.Status, "Q%d", v.Quarter)
			}

			counts := contracts.CountByKind(res.Diagnostics)
			if tt.diag {
				assert.Equal(t, 1, counts[contracts.DiagIrregularPattern])
			} else {
				assert.Zero(t, counts[contracts.DiagIrregularPattern])
			}
		})
	}
}

func TestDecompose_RestatementWins(t *testing.T) {
	records := []*contracts.DisclosureRecord{
		record(contracts.SourceFormalReport, 2023, 1, day(2023, 5, 15), revenue(10)),
		record(contracts.SourceFormalReport, 2023, 1, day(2023, 7, 1), revenue(11)),
	}

	res := newTestDecomposer().Decompose(testCode, records)
	require.Len(t, res.Values, 1)
	assert.Equal(t, 11.0, res.Values[0].Value)
	assert.Equal(t, day(2023, 7, 1), res.Values[0].DisclosedAt)
}

func TestDecompose_MissingMetricIsPerColumn(t *testing.T) {
	records := []*contracts.DisclosureRecord{
		record(contracts.SourceFormalReport, 2023, 1, day(2023, 5, 15), map[string]float64{
			contracts.MetricRevenue:         10,
			contracts.MetricOperatingProfit: 2,
		}),
		record(contracts.SourceFormalReport, 2023, 2, day(2023, 8, 14), map[string]float64{
			contracts.MetricRevenue:         22,
			contracts.MetricOperatingProfit: math.NaN(),
		}),
	}

	res := newTestDecomposer().Decompose(testCode, records)

	rev := pick(res.Values, contracts.MetricRevenue, contracts.SourceFormalReport)
	require.Len(t, rev, 2)
	assert.Equal(t, 12.0, rev[1].Value)

	op := pick(res.Values, contracts.MetricOperatingProfit, contracts.SourceFormalReport)
	require.Len(t, op, 1)
	assert.Equal(t, contracts.StatusDirectSingle, op[0].Status)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, contracts.DiagMissingInput, res.Diagnostics[0].Kind)
	assert.Equal(t, contracts.MetricOperatingProfit, res.Diagnostics[0].Metric)
}

func TestDecompose_ExpressUsesSameTable(t *testing.T) {
	records := []*contracts.DisclosureRecord{
		record(contracts.SourcePreliminaryExpress, 2023, 4, day(2024, 1, 30), revenue(52)),
	}

	res := newTestDecomposer().Decompose(testCode, records)
	require.Len(t, res.Values, 1)
	assert.Equal(t, contracts.StatusAnnualOnly, res.Values[0].Status)
	assert.Equal(t, contracts.SourcePreliminaryExpress, res.Values[0].Source)
}

func TestDecompose_Guidance(t *testing.T) {
	low, high := 28.0, 32.0
	guidance := &contracts.DisclosureRecord{
		Code:        testCode,
		PeriodEnd:   contracts.QuarterEnd(2023, 2),
		DisclosedAt: day(2023, 6, 1),
		Source:      contracts.SourceForwardGuidance,
		Ranges: map[string]contracts.GuidanceRange{
			contracts.MetricRevenue: {Low: &low, High: &high},
		},
	}

	t.Run("subtracts formal prior cumulative", func(t *testing.T) {
		records := []*contracts.DisclosureRecord{
			record(contracts.SourceFormalReport, 2023, 1, day(2023, 5, 15), revenue(10)),
			guidance,
		}

		res := newTestDecomposer().Decompose(testCode, records)
		got := pick(res.Values, contracts.MetricRevenue, contracts.SourceForwardGuidance)
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].Quarter)
		assert.InDelta(t, 20.0, got[0].Value, 1e-9)
		assert.Equal(t, contracts.StatusForecastDerived, got[0].Status)
		assert.Equal(t, day(2023, 6, 1), got[0].DisclosedAt)
	})

	t.Run("skipped without formal prior", func(t *testing.T) {
		res := newTestDecomposer().Decompose(testCode, []*contracts.DisclosureRecord{guidance})
		assert.Empty(t, res.Values)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, contracts.DiagMissingInput, res.Diagnostics[0].Kind)
	})

	t.Run("q1 guidance is the midpoint", func(t *testing.T) {
		q1 := *guidance
		q1.PeriodEnd = contracts.QuarterEnd(2023, 1)
		res := newTestDecomposer().Decompose(testCode, []*contracts.DisclosureRecord{&q1})
		require.Len(t, res.Values, 1)
		assert.Equal(t, 30.0, res.Values[0].Value)
	})

	t.Run("kept cumulative half counts as prior", func(t *testing.T) {
		q3 := *guidance
		q3.PeriodEnd = contracts.QuarterEnd(2023, 3)
		records := []*contracts.DisclosureRecord{
			record(contracts.SourceFormalReport, 2023, 2, day(2023, 8, 14), revenue(22)),
			&q3,
		}
		res := newTestDecomposer().Decompose(testCode, records)
		got := pick(res.Values, contracts.MetricRevenue, contracts.SourceForwardGuidance)
		require.Len(t, got, 1)
		assert.InDelta(t, 8.0, got[0].Value, 1e-9)
		assert.Equal(t, day(2023, 8, 14), got[0].DisclosedAt)
	})
}

func TestDecompose_Idempotent(t *testing.T) {
	records := []*contracts.DisclosureRecord{
		record(contracts.SourceFormalReport, 2023, 4, day(2024, 3, 15), revenue(50)),
		record(contracts.SourceFormalReport, 2023, 1, day(2023, 5, 15), revenue(10)),
		record(contracts.SourcePreliminaryExpress, 2023, 4, day(2024, 1, 30), revenue(49)),
		record(contracts.SourceFormalReport, 2022, 4, day(2023, 3, 15), revenue(44)),
	}

	d := newTestDecomposer()
	first := d.Decompose(testCode, records)

	// 입력 순서가 달라도 결과는 동일
	reversed := make([]*contracts.DisclosureRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	second := d.Decompose(testCode, reversed)

	assert.Equal(t, first, second)
}

func TestDecompose_TelescopingSumsToAnnual(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("single quarters add back to the annual cumulative", prop.ForAll(
		func(q1, q2, q3, q4 float64) bool {
			singles := []float64{q1, q2, q3, q4}
			var records []*contracts.DisclosureRecord
			cum := 0.0
			for i, v := range singles {
				cum += v
				q := i + 1
				records = append(records, record(contracts.SourceFormalReport, 2023, q, contracts.QuarterEnd(2023, q).AddDate(0, 1, 0), revenue(cum)))
			}

			res := newTestDecomposer().Decompose(testCode, records)
			if len(res.Values) != 4 {
				return false
			}
			sum := 0.0
			for i, v := range res.Values {
				if v.Status != contracts.StatusDirectSingle || math.Abs(v.Value-singles[i]) > 1e-6 {
					return false
				}
				sum += v.Value
			}
			return math.Abs(sum-cum) < 1e-6
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
