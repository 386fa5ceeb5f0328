package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 진단, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5
//   Data  Universe  Decompose  Snapshot  Window  Scoring

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 공시 원천 데이터 조회 및 결과 저장
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 기준일 시점 상장 종목 판정
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageDecompose S2: 공시 패턴 분류 및 단일 분기 분해
	// 위치: internal/s2_decompose/
	StageDecompose Stage = "S2_DECOMPOSE"

	// StageSnapshot S3: 소스 우선순위 및 시점 스냅샷
	// 위치: internal/s3_snapshot/
	StageSnapshot Stage = "S3_SNAPSHOT"

	// StageWindow S4: TTM / YoY / 윈저라이즈 랭크
	// 위치: internal/s4_window/
	StageWindow Stage = "S4_WINDOW"

	// StageScoring S5: 결측 허용 종합 점수
	// 위치: internal/s5_scoring/
	StageScoring Stage = "S5_SCORING"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageDecompose:
		return "S2"
	case StageSnapshot:
		return "S3"
	case StageWindow:
		return "S4"
	case StageScoring:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// EntityOutcome is the typed per-entity result of a batch
type EntityOutcome struct {
	Code        string       `json:"code"`
	Success     bool         `json:"success"`
	Skipped     bool         `json:"skipped"`  // 취소로 시작하지 못함
	Excluded    bool         `json:"excluded"` // stale 등으로 스냅샷 제외
	Error       string       `json:"error,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// DateReport summarizes one as-of date of a batch run
type DateReport struct {
	AsOf          time.Time       `json:"as_of"`
	EligibleCount int             `json:"eligible_count"`
	SuccessCount  int             `json:"success_count"`
	FailureCount  int             `json:"failure_count"`
	SkippedCount  int             `json:"skipped_count"`
	ExcludedCount int             `json:"excluded_count"`
	Outcomes      []EntityOutcome `json:"outcomes"`
	ScoreCount    int             `json:"score_count"`
	ScoreError    string          `json:"score_error,omitempty"`
}

// BatchReport is handed back to the orchestrator
type BatchReport struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Dates       []DateReport `json:"dates"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Cancelled   bool         `json:"cancelled"`
	ParamsHash  string       `json:"params_hash,omitempty"`
}

// TotalSuccess returns the number of successful entity runs across dates
func (b *BatchReport) TotalSuccess() int {
	n := 0
	for _, d := range b.Dates {
		n += d.SuccessCount
	}
	return n
}

// TotalFailure returns the number of failed entity runs across dates
func (b *BatchReport) TotalFailure() int {
	n := 0
	for _, d := range b.Dates {
		n += d.FailureCount
	}
	return n
}

// Succeeded reports whether at least one entity succeeded (exit status 0)
func (b *BatchReport) Succeeded() bool {
	return b.TotalSuccess() > 0
}
