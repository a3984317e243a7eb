package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/workflow"
	"github.com/garyjia/branch-forms/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const auditColumns = `
	a.id, a.record_id, a.sequence,
	a.actor_user_id, a.actor_name, a.actor_signature_ref, a.role_at_action,
	a.acted_at, a.note, a.from_status, a.to_status, a.fields`

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds an entry to a record's trail
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	fields := "{}"
	if len(entry.Fields) > 0 {
		data, err := json.Marshal(entry.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode audit fields: %w", err)
		}
		fields = string(data)
	}

	query := `
		INSERT INTO audit_entries (
			id, record_id, sequence,
			actor_user_id, actor_name, actor_signature_ref, role_at_action,
			acted_at, note, from_status, to_status, fields
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.RecordID,
		entry.Sequence,
		entry.ActorUserID,
		entry.ActorName,
		entry.ActorSignatureRef,
		string(entry.Role),
		entry.ActedAt.UTC(),
		entry.Note,
		string(entry.FromStatus),
		string(entry.ToStatus),
		fields,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("record_id", entry.RecordID),
			zap.Int("sequence", entry.Sequence),
			zap.String("tx_id", sqlite.TxID(ctx)),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByRecord returns a record's trail in sequence order
func (r *AuditRepository) ListByRecord(ctx context.Context, recordID string) ([]entity.AuditEntry, error) {
	query := `SELECT` + auditColumns + `
		FROM audit_entries a
		WHERE a.record_id = ?
		ORDER BY a.sequence
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, recordID)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.String("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []entity.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func scanAuditEntry(row rowScanner) (*entity.AuditEntry, error) {
	var (
		entry          entity.AuditEntry
		role, from, to string
		fields         string
	)

	err := row.Scan(
		&entry.ID,
		&entry.RecordID,
		&entry.Sequence,
		&entry.ActorUserID,
		&entry.ActorName,
		&entry.ActorSignatureRef,
		&role,
		&entry.ActedAt,
		&entry.Note,
		&from,
		&to,
		&fields,
	)
	if err != nil {
		return nil, err
	}

	entry.Role = workflow.Role(role)
	entry.FromStatus = workflow.Status(from)
	entry.ToStatus = workflow.Status(to)
	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &entry.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode audit fields of %s: %w", entry.ID, err)
		}
	}

	return &entry, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
