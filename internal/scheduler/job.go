package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error

	// Schedule returns a cron expression with a seconds field
	// 예: "0 30 20 * * 1-5" (평일 20:30:00)
	Schedule() string
}

// JobResult represents one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// defaultHistoryLimit is how many results a history keeps
const defaultHistoryLimit = 100

// JobHistory is a bounded, oldest-first list of results
type JobHistory struct {
	Results []JobResult
	limit   int
}

func newJobHistory(limit int) *JobHistory {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &JobHistory{limit: limit}
}

// AddResult appends a result, dropping the oldest beyond the limit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	limit := h.limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if len(h.Results) > limit {
		h.Results = h.Results[len(h.Results)-limit:]
	}
}

// Last returns the most recent result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// LastWhere returns the most recent result with the given outcome
func (h *JobHistory) LastWhere(success bool) (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

// FailureCount returns the number of failed results kept
func (h *JobHistory) FailureCount() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// ConsecutiveFailures counts failures since the last success
// 일일 배치가 며칠째 실패 중인지 판단할 때 사용
func (h *JobHistory) ConsecutiveFailures() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		n++
	}
	return n
}

// SuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-h.FailureCount()) / float64(len(h.Results))
}
