package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-pit/backend/pkg/config"
)

// openTestDB connects to DATABASE_URL or skips
func openTestDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNew(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, db.Ping(ctx))
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.NotZero(t, status.Stats.MaxConns)
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	// Double close should not panic
	db.Close()
	db.Close()
}

// fakeTx records commit/rollback; other pgx.Tx methods are unused
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		err := WithTx(ctx, b, func(pgx.Tx) error { return nil })
		require.NoError(t, err)
		assert.True(t, b.tx.committed)
		assert.False(t, b.tx.rolledBack)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		boom := errors.New("boom")
		err := WithTx(ctx, b, func(pgx.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, b.tx.committed)
		assert.True(t, b.tx.rolledBack)
	})

	t.Run("commit failure surfaces", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
		err := WithTx(ctx, b, func(pgx.Tx) error { return nil })
		assert.Error(t, err)
		assert.True(t, b.tx.rolledBack)
	})

	t.Run("begin failure", func(t *testing.T) {
		b := &fakeBeginner{err: errors.New("pool closed")}
		called := false
		err := WithTx(ctx, b, func(pgx.Tx) error { called = true; return nil })
		assert.Error(t, err)
		assert.False(t, called)
	})
}
