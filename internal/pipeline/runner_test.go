package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/pitconfig"
	"github.com/wonny/aegis-pit/backend/internal/s1_universe"
	"github.com/wonny/aegis-pit/backend/pkg/config"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// formalYears builds cumulative formal records from single-quarter revenue,
// with operating profit at a fixed margin
func formalYears(code string, margin float64, singles map[int][4]float64) []*contracts.DisclosureRecord {
	var out []*contracts.DisclosureRecord
	for year, qs := range singles {
		cum := 0.0
		for i, v := range qs {
			cum += v
			q := i + 1
			end := contracts.QuarterEnd(year, q)
			out = append(out, &contracts.DisclosureRecord{
				Code:        code,
				PeriodEnd:   end,
				DisclosedAt: end.AddDate(0, 0, 45),
				Source:      contracts.SourceFormalReport,
				Values: map[string]float64{
					contracts.MetricRevenue:         cum,
					contracts.MetricOperatingProfit: cum * margin,
				},
			})
		}
	}
	return out
}

func testParams() pitconfig.Params {
	return pitconfig.FromEnv(config.PITConfig{
		StaleMonths:      10,
		YoYIntervalWeeks: 52,
		YoYToleranceDays: 45,
		WinsorLower:      0,
		WinsorUpper:      1,
		BatchSize:        2,
		Workers:          2,
	})
}

type fixture struct {
	runner      *Runner
	entities    *memEntities
	disclosures *memDisclosures
	results     *memResults
	runs        *memRuns
}

func newFixture() *fixture {
	entities := &memEntities{entities: []contracts.Entity{
		{Code: "000001", Name: "성장기업", ListingDate: day(2000, 1, 4)},
		{Code: "000002", Name: "정체기업", ListingDate: day(2000, 1, 4)},
		{Code: "000003", Name: "휴면기업", ListingDate: day(2000, 1, 4)},
		{Code: "000004", Name: "신규기업", ListingDate: day(2030, 1, 2)},
	}}

	records := map[string][]*contracts.DisclosureRecord{
		"000001": formalYears("000001", 0.2, map[int][4]float64{
			2022: {100, 100, 100, 100},
			2023: {120, 130, 140, 150},
		}),
		"000002": formalYears("000002", 0.1, map[int][4]float64{
			2022: {100, 100, 100, 100},
			2023: {100, 100, 100, 90},
		}),
		"000003": formalYears("000003", 0.1, map[int][4]float64{
			2021: {50, 50, 50, 50},
		}),
	}

	log := logger.NewNop()
	f := &fixture{
		entities:    entities,
		disclosures: &memDisclosures{records: records},
		results:     newMemResults(),
		runs:        &memRuns{},
	}
	f.runner = NewRunner(
		NewEngine(testParams(), log),
		s1_universe.NewBuilder(s1_universe.DefaultConfig()),
		f.disclosures,
		entities,
		f.results,
		f.runs,
		log,
	)
	return f
}

func TestRunner_Run(t *testing.T) {
	f := newFixture()
	asOf := day(2024, 4, 1)

	report, err := f.runner.Run(context.Background(), RunConfig{Dates: []time.Time{asOf}, BatchSize: 2, Workers: 2})
	require.NoError(t, err)
	require.Len(t, report.Dates, 1)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Cancelled)
	assert.True(t, report.Succeeded())

	d := report.Dates[0]
	assert.Equal(t, 3, d.EligibleCount, "not-yet-listed entity filtered out")
	assert.Equal(t, 2, d.SuccessCount)
	assert.Equal(t, 1, d.ExcludedCount)
	assert.Zero(t, d.FailureCount)
	assert.Equal(t, 2, d.ScoreCount)

	// 성장기업 YoY: 150 vs 100
	grower := f.results.entity[resultKey{"000001", asOf}]
	require.NotNil(t, grower)
	rev, ok := grower.DerivedFor(contracts.MetricRevenue)
	require.True(t, ok)
	require.NotNil(t, rev.YoYGrowth)
	assert.InDelta(t, 50.0, *rev.YoYGrowth, 1e-9)
	require.NotNil(t, rev.TTM)
	assert.InDelta(t, 540.0, *rev.TTM, 1e-9)

	// 휴면기업은 제외되지만 결과 행은 교체됨
	dormant := f.results.entity[resultKey{"000003", asOf}]
	require.NotNil(t, dormant)
	assert.Nil(t, dormant.Snapshot)
	assert.NotZero(t, contracts.CountByKind(dormant.Diagnostics)[contracts.DiagStaleSnapshot])

	scores := f.results.scores[asOf]
	require.Len(t, scores, 2)
	assert.Equal(t, "000001", scores[0].Code)
	assert.Equal(t, 1, scores[0].Rank)
	assert.Greater(t, scores[0].Score, scores[1].Score)

	require.Len(t, f.runs.reports, 1)
	assert.Equal(t, report.RunID, f.runs.reports[0].RunID)
}

func TestRunner_NoLookAhead(t *testing.T) {
	f := newFixture()
	// 2023 사업보고서(2024-02-14 공시) 이전 시점
	asOf := day(2024, 2, 1)

	report, err := f.runner.Run(context.Background(), RunConfig{Dates: []time.Time{asOf}, Codes: []string{"000001"}})
	require.NoError(t, err)
	require.True(t, report.Succeeded())

	res := f.results.entity[resultKey{"000001", asOf}]
	require.NotNil(t, res)
	for _, v := range res.Decomposed {
		assert.False(t, v.DisclosedAt.After(asOf), "value for %s disclosed %s", v.PeriodEnd, v.DisclosedAt)
	}
	rev, ok := res.DerivedFor(contracts.MetricRevenue)
	require.True(t, ok)
	assert.Equal(t, contracts.QuarterEnd(2023, 3), rev.PeriodEnd)
}

func TestRunner_StoreWriteFailure(t *testing.T) {
	f := newFixture()
	f.results.failCode = "000002"
	asOf := day(2024, 4, 1)

	report, err := f.runner.Run(context.Background(), RunConfig{Dates: []time.Time{asOf}, BatchSize: 10, Workers: 4})
	require.NoError(t, err)

	d := report.Dates[0]
	assert.Equal(t, 1, d.SuccessCount)
	assert.Equal(t, 1, d.FailureCount)
	assert.Equal(t, 1, contracts.CountByKind(report.Diagnostics)[contracts.DiagStoreWriteFailure])
	assert.True(t, report.Succeeded())
	assert.Len(t, f.results.scores[asOf], 1, "failed entity not scored")
}

func TestRunner_Cancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		f := newFixture()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := f.runner.Run(ctx, RunConfig{Dates: []time.Time{day(2024, 4, 1)}})
		require.NoError(t, err)
		assert.True(t, report.Cancelled)
		assert.False(t, report.Succeeded())
		assert.Empty(t, f.results.entity)
	})

	t.Run("started entity completes its commit", func(t *testing.T) {
		f := newFixture()
		ctx, cancel := context.WithCancel(context.Background())
		f.disclosures.onLoad = func(string) { cancel() }
		asOf := day(2024, 4, 1)

		report, err := f.runner.Run(ctx, RunConfig{Dates: []time.Time{asOf, day(2024, 5, 1)}, BatchSize: 10, Workers: 1})
		require.NoError(t, err)
		assert.True(t, report.Cancelled)
		require.Len(t, report.Dates, 1, "second date never starts")

		d := report.Dates[0]
		assert.Equal(t, 1, d.SuccessCount)
		assert.Equal(t, 2, d.SkippedCount)
		assert.NotEmpty(t, d.ScoreError)
		assert.Contains(t, f.results.entity, resultKey{"000001", asOf})
		assert.Empty(t, f.results.scores)
	})
}

func TestRunner_Idempotent(t *testing.T) {
	f := newFixture()
	asOf := day(2024, 4, 1)
	cfg := RunConfig{Dates: []time.Time{asOf}, BatchSize: 1, Workers: 3}

	_, err := f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	first := f.results.scores[asOf]
	firstEntity := f.results.entity[resultKey{"000001", asOf}]

	_, err = f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, f.results.scores[asOf])
	assert.Equal(t, firstEntity, f.results.entity[resultKey{"000001", asOf}])
}

// 상장폐지일 정정 후 재실행하면 해당 기준일의 이전 산출물이 남지 않아야 함
func TestRunner_ClearsIneligibleEntities(t *testing.T) {
	f := newFixture()
	asOf := day(2024, 4, 1)
	cfg := RunConfig{Dates: []time.Time{asOf}, BatchSize: 2, Workers: 2}

	_, err := f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, f.results.entity[resultKey{"000002", asOf}])

	delisted := day(2024, 1, 31)
	f.entities.entities[1].DelistingDate = &delisted

	report, err := f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Dates[0].EligibleCount)

	assert.Nil(t, f.results.entity[resultKey{"000002", asOf}], "delisted entity output removed")
	assert.NotNil(t, f.results.entity[resultKey{"000001", asOf}])
	for _, s := range f.results.scores[asOf] {
		assert.NotEqual(t, "000002", s.Code)
	}
}
