package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/branch-forms/internal/application/port"
)

type contextKey string

const txKey contextKey = "tx"

// txState is the transaction carried by a context, tagged for log correlation
type txState struct {
	tx      *sql.Tx
	id      string
	started time.Time
}

// DB wraps sql.DB and implements TransactionManager
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction implements port.TransactionManager.
// Nested calls join the transaction already carried by ctx; only the outermost call commits.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if state := stateFromContext(ctx); state != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	state := &txState{tx: tx, id: uuid.NewString()[:8], started: time.Now()}
	log := db.logger.With(zap.String("tx_id", state.id))
	txCtx := context.WithValue(ctx, txKey, state)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			log.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("Failed to rollback transaction", zap.Error(rbErr), zap.NamedError("cause", err))
		} else {
			log.Debug("Transaction rolled back",
				zap.NamedError("cause", err),
				zap.Duration("elapsed", time.Since(state.started)))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("Transaction committed", zap.Duration("elapsed", time.Since(state.started)))
	return nil
}

func stateFromContext(ctx context.Context) *txState {
	if state, ok := ctx.Value(txKey).(*txState); ok {
		return state
	}
	return nil
}

// TxFromContext returns the transaction carried by ctx, or nil outside WithTransaction
func TxFromContext(ctx context.Context) *sql.Tx {
	if state := stateFromContext(ctx); state != nil {
		return state.tx
	}
	return nil
}

// TxID returns the log id of the transaction carried by ctx, or "" outside one
func TxID(ctx context.Context) string {
	if state := stateFromContext(ctx); state != nil {
		return state.id
	}
	return ""
}

// Executor picks the transaction carried by ctx, falling back to the pool.
// Repositories run every statement through it so they take part in the engine's transaction.
func Executor(ctx context.Context, db *sql.DB) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// Querier covers both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ port.TransactionManager = (*DB)(nil)
