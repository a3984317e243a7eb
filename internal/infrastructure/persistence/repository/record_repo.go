package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/workflow"
	"github.com/garyjia/branch-forms/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const recordColumns = `
	r.id, r.code, r.request_type,
	r.requester_user_id, r.requester_employee_id, r.requester_name,
	r.requester_branch, r.requester_department,
	r.submitted_at, r.payload, r.status, r.updated_at`

// RecordRepository implements port.RecordRepository
type RecordRepository struct {
	db     *sql.DB
	audit  *AuditRepository
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		audit:  NewAuditRepository(db, logger),
		logger: logger,
	}
}

// Create inserts a new record. Audit entries on the record are not written here.
func (r *RecordRepository) Create(ctx context.Context, record *entity.RequestRecord) error {
	payload, err := marshalPayload(record.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO request_records (
			id, code, request_type,
			requester_user_id, requester_employee_id, requester_name,
			requester_branch, requester_department,
			submitted_at, payload, status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.Code,
		string(record.Type),
		record.Requester.UserID,
		record.Requester.EmployeeID,
		record.Requester.Name,
		record.Requester.Branch,
		record.Requester.Department,
		record.SubmittedAt.UTC(),
		payload,
		string(record.Status),
		record.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", port.ErrDuplicateCode, record.Type, record.Code)
		}
		r.logger.Error("Failed to create record", zap.String("code", record.Code), zap.Error(err))
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetByID retrieves a record of the given type with its audit trail
func (r *RecordRepository) GetByID(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error) {
	query := `SELECT` + recordColumns + `
		FROM request_records r
		WHERE r.id = ? AND r.request_type = ?
	`

	record, err := scanRecord(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id, string(t)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	audit, err := r.audit.ListByRecord(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Audit = audit

	return record, nil
}

// List returns the records matching filter, newest code first, each with its audit trail
func (r *RecordRepository) List(ctx context.Context, filter port.RecordFilter) ([]*entity.RequestRecord, error) {
	where, args := filterClause(filter)
	exec := sqlite.Executor(ctx, r.db)

	query := `SELECT` + recordColumns + `
		FROM request_records r` + where + `
		ORDER BY r.code DESC
	`

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*entity.RequestRecord
	byID := make(map[string]*entity.RequestRecord)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
		byID[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	auditQuery := `SELECT` + auditColumns + `
		FROM audit_entries a
		JOIN request_records r ON r.id = a.record_id` + where + `
		ORDER BY a.record_id, a.sequence
	`
	auditRows, err := exec.QueryContext(ctx, auditQuery, args...)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer auditRows.Close()

	for auditRows.Next() {
		entry, err := scanAuditEntry(auditRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if record, ok := byID[entry.RecordID]; ok {
			record.Audit = append(record.Audit, *entry)
		}
	}

	return records, auditRows.Err()
}

// UpdateStatus moves a record from patch.From to patch.To.
// Returns port.ErrStaleStatus when the record is no longer in patch.From.
func (r *RecordRepository) UpdateStatus(ctx context.Context, t entity.RequestType, id string, patch port.StatusPatch) error {
	var (
		result sql.Result
		err    error
	)
	exec := sqlite.Executor(ctx, r.db)

	if patch.Payload != nil {
		payload, mErr := marshalPayload(patch.Payload)
		if mErr != nil {
			return mErr
		}
		result, err = exec.ExecContext(ctx, `
			UPDATE request_records
			SET status = ?, payload = ?, updated_at = ?
			WHERE id = ? AND request_type = ? AND status = ?
		`, string(patch.To), payload, patch.UpdatedAt.UTC(), id, string(t), string(patch.From))
	} else {
		result, err = exec.ExecContext(ctx, `
			UPDATE request_records
			SET status = ?, updated_at = ?
			WHERE id = ? AND request_type = ? AND status = ?
		`, string(patch.To), patch.UpdatedAt.UTC(), id, string(t), string(patch.From))
	}
	if err != nil {
		r.logger.Error("Failed to update record status",
			zap.String("id", id),
			zap.String("tx_id", sqlite.TxID(ctx)),
			zap.String("to", string(patch.To)),
			zap.Error(err))
		return fmt.Errorf("failed to update record status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s expected %s", port.ErrStaleStatus, id, patch.From)
	}

	return nil
}

// CountByStatus returns record counts grouped by type and status
func (r *RecordRepository) CountByStatus(ctx context.Context) (map[entity.RequestType]map[workflow.Status]int, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT request_type, status, COUNT(*)
		FROM request_records
		GROUP BY request_type, status
	`)
	if err != nil {
		r.logger.Error("Failed to count records", zap.Error(err))
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.RequestType]map[workflow.Status]int)
	for rows.Next() {
		var (
			t, status string
			n         int
		)
		if err := rows.Scan(&t, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		rt := entity.RequestType(t)
		if counts[rt] == nil {
			counts[rt] = make(map[workflow.Status]int)
		}
		counts[rt][workflow.Status(status)] = n
	}

	return counts, rows.Err()
}

func filterClause(filter port.RecordFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Type != "" {
		conds = append(conds, "r.request_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.RequesterUserID != "" {
		conds = append(conds, "r.requester_user_id = ?")
		args = append(args, filter.RequesterUserID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "r.status IN ("+strings.Join(marks, ", ")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.RequestRecord, error) {
	var (
		record          entity.RequestRecord
		reqType, status string
		payload         string
	)

	err := row.Scan(
		&record.ID,
		&record.Code,
		&reqType,
		&record.Requester.UserID,
		&record.Requester.EmployeeID,
		&record.Requester.Name,
		&record.Requester.Branch,
		&record.Requester.Department,
		&record.SubmittedAt,
		&payload,
		&status,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Type = entity.RequestType(reqType)
	record.Status = workflow.Status(status)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &record.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", record.ID, err)
		}
	}

	return &record, nil
}

func marshalPayload(payload map[string]interface{}) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

var _ port.RecordRepository = (*RecordRepository)(nil)
