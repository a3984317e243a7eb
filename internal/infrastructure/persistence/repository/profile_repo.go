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

// ProfileRepository implements port.ProfileRepository
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves a profile by user ID
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	query := `
		SELECT user_id, employee_id, name, signature_ref, role,
			branch, department, created_at, updated_at
		FROM user_profiles
		WHERE user_id = ?
	`

	var p entity.Profile
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.EmployeeID,
		&p.Name,
		&p.SignatureRef,
		&p.Role,
		&p.Branch,
		&p.Department,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// Upsert creates or replaces a profile, keeping the original creation time
func (r *ProfileRepository) Upsert(ctx context.Context, p *entity.Profile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, employee_id, name, signature_ref, role,
			branch, department, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			employee_id = excluded.employee_id,
			name = excluded.name,
			signature_ref = excluded.signature_ref,
			role = excluded.role,
			branch = excluded.branch,
			department = excluded.department,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		p.UserID,
		p.EmployeeID,
		p.Name,
		p.SignatureRef,
		p.Role,
		p.Branch,
		p.Department,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.String("user_id", p.UserID), zap.Error(err))
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
