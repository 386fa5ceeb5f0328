package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // 처음 N번 실패
	calls    int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&countingJob{name: "pit_batch", schedule: "0 30 20 * * 1-5"}))
	assert.Error(t, s.AddJob(&countingJob{name: "pit_batch", schedule: "@daily"}), "duplicate")
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))

	assert.Equal(t, []string{"pit_batch"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("pit_batch"))
	assert.Empty(t, s.GetAllJobs())
	assert.Empty(t, s.cron.Entries())
	assert.Error(t, s.RemoveJob("pit_batch"))
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(3, time.Millisecond))
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))
	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 3, history.Results[0].Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(1, time.Millisecond))
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	assert.Equal(t, int32(2), atomic.LoadInt32(&job.calls))
	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 1, stats.ConsecutiveFailures)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestStop_CancelsJobs(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(0, 0))
	s.Start()
	s.Stop()

	job := &countingJob{name: "late", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))
	s.runJob(job)

	// 정지 후에는 실행하지 않고 취소로 기록
	assert.Equal(t, int32(0), atomic.LoadInt32(&job.calls))
	history, _ := s.GetJobHistory("late")
	require.Len(t, history.Results, 1)
	assert.Equal(t, context.Canceled.Error(), history.Results[0].Error)
}

func TestJobHistory(t *testing.T) {
	h := newJobHistory(100)
	for i := 0; i < 105; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, 100)
	assert.Equal(t, 50, h.FailureCount())
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Equal(t, 0, h.ConsecutiveFailures())

	empty := newJobHistory(0)
	_, ok := empty.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, empty.SuccessRate())
}

func TestJobHistory_ConsecutiveFailures(t *testing.T) {
	base := time.Date(2024, 5, 20, 11, 30, 0, 0, time.UTC)
	h := newJobHistory(3)
	for i, ok := range []bool{true, true, false, false} {
		h.AddResult(JobResult{StartTime: base.AddDate(0, 0, i), Success: ok})
	}

	// 한도 3개만 유지
	require.Len(t, h.Results, 3)
	assert.Equal(t, 2, h.ConsecutiveFailures())

	last, ok := h.LastWhere(true)
	require.True(t, ok)
	assert.Equal(t, base.AddDate(0, 0, 1), last.StartTime)

	lastRun, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, base.AddDate(0, 0, 3), lastRun.StartTime)
}
