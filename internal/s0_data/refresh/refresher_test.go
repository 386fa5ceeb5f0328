package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// scriptedExec fails statements that contain any of the given substrings
type scriptedExec struct {
	failOn []string
	calls  []string
}

func (s *scriptedExec) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, sql)
	for _, f := range s.failOn {
		if strings.Contains(sql, f) {
			return pgconn.CommandTag{}, errors.New("boom")
		}
	}
	return pgconn.NewCommandTag("REFRESH MATERIALIZED VIEW"), nil
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from State
		ok   bool
		want State
	}{
		{StatePending, true, StateConcurrent},
		{StateConcurrent, true, StateDone},
		{StateConcurrent, false, StateFullFallback},
		{StateFullFallback, true, StateDone},
		{StateFullFallback, false, StateFailed},
		{StateDone, false, StateDone},
		{StateFailed, true, StateFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.next(tt.ok))
		})
	}
}

func TestRefresh(t *testing.T) {
	log := logger.NewNop()

	t.Run("concurrent succeeds", func(t *testing.T) {
		db := &scriptedExec{}
		res := NewRefresher(db, log).Refresh(context.Background(), "pit.mv_latest_scores")

		assert.Equal(t, StateDone, res.Final)
		require.Len(t, res.Attempts, 1)
		assert.Equal(t, StateConcurrent, res.Attempts[0].State)
		assert.Equal(t, `REFRESH MATERIALIZED VIEW CONCURRENTLY "pit"."mv_latest_scores"`, db.calls[0])
	})

	t.Run("falls back to full refresh", func(t *testing.T) {
		db := &scriptedExec{failOn: []string{"CONCURRENTLY"}}
		res := NewRefresher(db, log).Refresh(context.Background(), "pit.mv_latest_scores")

		assert.Equal(t, StateDone, res.Final)
		require.Len(t, res.Attempts, 2)
		assert.Equal(t, StateFullFallback, res.Attempts[1].State)
		assert.NotEmpty(t, res.Attempts[0].Err)
		assert.Empty(t, res.Attempts[1].Err)
	})

	t.Run("both fail", func(t *testing.T) {
		db := &scriptedExec{failOn: []string{"REFRESH"}}
		res := NewRefresher(db, log).Refresh(context.Background(), "pit.mv_latest_scores")

		assert.Equal(t, StateFailed, res.Final)
		assert.Len(t, res.Attempts, 2)
	})
}

func TestRefreshAll(t *testing.T) {
	db := &scriptedExec{failOn: []string{`"mv_derived_latest"`}}
	results, err := NewRefresher(db, logger.NewNop()).RefreshAll(context.Background(), DefaultViews)

	require.Error(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StateDone, results[0].Final)
	assert.Equal(t, StateFailed, results[1].Final)
}

func TestRefreshAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := &scriptedExec{}
	results, err := NewRefresher(db, logger.NewNop()).RefreshAll(ctx, DefaultViews)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, db.calls)
}
