package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/internal/external/dart"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

type fakeSource struct {
	failCorp string
}

func (f *fakeSource) FetchFinancials(_ context.Context, corpCode string, year int, report dart.ReportCode) ([]dart.FinancialAccount, error) {
	if corpCode == f.failCorp {
		return nil, errors.New("API error: 020")
	}
	q, _ := report.Quarter()
	return []dart.FinancialAccount{{
		RceptNo:         fmt.Sprintf("%d%02d15000001", year+q/4, (q*3+1)%12+1),
		FsDiv:           "CFS",
		SjDiv:           "IS",
		AccountNm:       "매출액",
		ThstrmAmount:    fmt.Sprintf("%d", q*100),
		ThstrmAddAmount: fmt.Sprintf("%d", q*100),
	}}, nil
}

type memSink struct {
	mu      sync.Mutex
	records []*contracts.DisclosureRecord
}

func (m *memSink) SaveBatch(_ context.Context, records []*contracts.DisclosureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func TestTargetsFrom(t *testing.T) {
	targets := TargetsFrom(map[string]string{"000660": "00164779", "005930": "00126380"})
	require.Len(t, targets, 2)
	assert.Equal(t, "000660", targets[0].Code)
	assert.Equal(t, "00126380", targets[1].CorpCode)
}

func TestFetchAllFinancials(t *testing.T) {
	sink := &memSink{}
	c := NewCollector(&fakeSource{failCorp: "bad"}, sink, logger.NewNop())

	targets := []Target{
		{Code: "005930", CorpCode: "00126380"},
		{Code: "999999", CorpCode: "bad"},
	}

	results, err := c.FetchAllFinancials(context.Background(), targets, Config{Workers: 2, Years: []int{2024}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "005930", results[0].StockCode)
	assert.NoError(t, results[0].Error)
	assert.Equal(t, 4, results[0].RecordCount)
	assert.Error(t, results[1].Error)

	require.Len(t, sink.records, 4)
	for _, r := range sink.records {
		assert.Equal(t, contracts.SourceFormalReport, r.Source)
		assert.Equal(t, float64(r.Quarter()*100), r.Values[contracts.MetricRevenue])
		assert.False(t, r.DisclosedAt.Before(r.PeriodEnd), "disclosed after period end")
	}
}

func TestFetchAllFinancials_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	c := NewCollector(&fakeSource{}, sink, logger.NewNop())

	results, err := c.FetchAllFinancials(ctx, []Target{{Code: "005930", CorpCode: "x"}}, Config{Years: []int{2024}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Empty(t, sink.records)
}

func TestFetchAllFinancials_NoYears(t *testing.T) {
	c := NewCollector(&fakeSource{}, &memSink{}, logger.NewNop())
	_, err := c.FetchAllFinancials(context.Background(), nil, Config{})
	assert.Error(t, err)
}
