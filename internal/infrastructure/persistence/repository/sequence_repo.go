package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// SequenceRepository implements port.CodeSequencer on the code_sequences table
type SequenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) *SequenceRepository {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Next atomically increments and returns the counter for (t, year), starting at 1
func (r *SequenceRepository) Next(ctx context.Context, t entity.RequestType, year int) (int64, error) {
	query := `
		INSERT INTO code_sequences (request_type, year, last_value)
		VALUES (?, ?, 1)
		ON CONFLICT (request_type, year) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`

	var next int64
	if err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, string(t), year).Scan(&next); err != nil {
		r.logger.Error("Failed to advance code sequence",
			zap.String("request_type", string(t)),
			zap.Int("year", year),
			zap.Error(err))
		return 0, fmt.Errorf("failed to advance code sequence: %w", err)
	}

	return next, nil
}

var _ port.CodeSequencer = (*SequenceRepository)(nil)
