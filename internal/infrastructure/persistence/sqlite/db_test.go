package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/branch-forms/pkg/database"
)

func setupTestDB(t *testing.T) (*DB, *observer.ObservedLogs) {
	t.Helper()

	sqlDB, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "tx.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE items (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	return NewDB(sqlDB.DB, zap.New(core)), logs
}

func countItems(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestWithTransaction_Commit(t *testing.T) {
	db, logs := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NotNil(t, TxFromContext(txCtx))
		_, err := Executor(txCtx, db.DB).ExecContext(txCtx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))

	committed := logs.FilterMessage("Transaction committed").All()
	require.Len(t, committed, 1)
	assert.Len(t, committed[0].ContextMap()["tx_id"], 8)
}

func TestWithTransaction_NestedJoins(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTransaction(ctx, func(outer context.Context) error {
		if _, err := Executor(outer, db.DB).ExecContext(outer, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, TxFromContext(outer), TxFromContext(inner))
			assert.Equal(t, TxID(outer), TxID(inner))
			if _, err := Executor(inner, db.DB).ExecContext(inner, `INSERT INTO items (name) VALUES ('b')`); err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, db), "inner failure rolls back the outer writes")
}

func TestWithTransaction_RollbackLogsCause(t *testing.T) {
	db, logs := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		_, _ = Executor(txCtx, db.DB).ExecContext(txCtx, `INSERT INTO items (name) VALUES ('a')`)
		return errors.New("stale status")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countItems(t, db))

	rolled := logs.FilterMessage("Transaction rolled back").All()
	require.Len(t, rolled, 1)
	fields := rolled[0].ContextMap()
	assert.Equal(t, "stale status", fields["cause"])
	assert.NotEmpty(t, fields["tx_id"])
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	db, logs := setupTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.WithTransaction(ctx, func(txCtx context.Context) error {
			_, _ = Executor(txCtx, db.DB).ExecContext(txCtx, `INSERT INTO items (name) VALUES ('a')`)
			panic("handler bug")
		})
	})
	assert.Equal(t, 0, countItems(t, db))
	assert.Equal(t, 1, logs.FilterMessage("Transaction panicked, rolled back").Len())
}

func TestExecutor_OutsideTransaction(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	assert.Nil(t, TxFromContext(ctx))
	assert.Empty(t, TxID(ctx))
	_, err := Executor(ctx, db.DB).ExecContext(ctx, `INSERT INTO items (name) VALUES ('solo')`)
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}
