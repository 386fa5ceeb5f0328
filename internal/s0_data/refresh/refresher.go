package refresh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// State 뷰 갱신 상태 (상태 머신)
//
//	Pending → Concurrent → Done
//	                     ↘ FullFallback → Done | Failed
type State string

const (
	StatePending      State = "PENDING"
	StateConcurrent   State = "CONCURRENT"    // REFRESH ... CONCURRENTLY 시도 중
	StateFullFallback State = "FULL_FALLBACK" // 잠금 있는 전체 갱신으로 재시도
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed:
		return true
	case StatePending, StateConcurrent, StateFullFallback:
		return false
	}
	return false
}

// next returns the state after an attempt in s succeeded or failed
func (s State) next(ok bool) State {
	switch s {
	case StatePending:
		return StateConcurrent
	case StateConcurrent:
		if ok {
			return StateDone
		}
		return StateFullFallback
	case StateFullFallback:
		if ok {
			return StateDone
		}
		return StateFailed
	case StateDone, StateFailed:
		return s
	}
	return StateFailed
}

// DefaultViews are the materialized views derived from PIT results
var DefaultViews = []string{
	"pit.mv_latest_scores",
	"pit.mv_derived_latest",
}

// Execer runs a statement (pgxpool.Pool, pgx.Conn and pgx.Tx all satisfy it)
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Attempt is one refresh statement issued for a view
type Attempt struct {
	State    State         `json:"state"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the refresh history of one view
type Result struct {
	View     string    `json:"view"`
	Final    State     `json:"final"`
	Attempts []Attempt `json:"attempts"`
}

// Refresher refreshes materialized views
type Refresher struct {
	db     Execer
	logger *logger.Logger
}

// NewRefresher creates a new refresher
func NewRefresher(db Execer, log *logger.Logger) *Refresher {
	return &Refresher{
		db:     db,
		logger: log.WithField("module", "refresh"),
	}
}

// Refresh walks one view through the state machine until a terminal state
func (r *Refresher) Refresh(ctx context.Context, view string) Result {
	res := Result{View: view}
	state := StatePending.next(true)

	for !state.Terminal() {
		start := time.Now()
		err := r.exec(ctx, view, state)

		attempt := Attempt{State: state, Duration: time.Since(start)}
		if err != nil {
			attempt.Err = err.Error()
			r.logger.WithFields(map[string]interface{}{
				"view":  view,
				"state": string(state),
			}).WithError(err).Warn("View refresh attempt failed")
		}
		res.Attempts = append(res.Attempts, attempt)

		state = state.next(err == nil)
	}

	res.Final = state
	if state == StateDone {
		r.logger.WithFields(map[string]interface{}{
			"view":     view,
			"attempts": len(res.Attempts),
		}).Info("View refreshed")
	}
	return res
}

// RefreshAll refreshes views in order. 하나가 실패해도 나머지는 계속한다.
func (r *Refresher) RefreshAll(ctx context.Context, views []string) ([]Result, error) {
	results := make([]Result, 0, len(views))
	failed := 0
	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.Refresh(ctx, v)
		if res.Final == StateFailed {
			failed++
		}
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d views failed to refresh", failed, len(views))
	}
	return results, nil
}

func (r *Refresher) exec(ctx context.Context, view string, state State) error {
	ident := pgx.Identifier(strings.SplitN(view, ".", 2)).Sanitize()

	var sql string
	switch state {
	case StateConcurrent:
		sql = "REFRESH MATERIALIZED VIEW CONCURRENTLY " + ident
	case StateFullFallback:
		sql = "REFRESH MATERIALIZED VIEW " + ident
	default:
		return fmt.Errorf("no statement for state %s", state)
	}

	if _, err := r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("refresh %s: %w", view, err)
	}
	return nil
}
