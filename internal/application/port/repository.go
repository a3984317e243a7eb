package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/workflow"
)

var (
	// ErrStaleStatus is returned when a status update finds the record no longer in the expected status
	ErrStaleStatus = errors.New("record status changed since it was read")

	// ErrDuplicateCode is returned when a record is created with a code already in use for its type
	ErrDuplicateCode = errors.New("reference code already assigned")
)

// RecordFilter narrows a record listing
type RecordFilter struct {
	Type            entity.RequestType
	RequesterUserID string
	Statuses        []workflow.Status
}

// StatusPatch is the compare-and-set write applied by a transition
type StatusPatch struct {
	From      workflow.Status
	To        workflow.Status
	Payload   map[string]interface{} // nil leaves the payload untouched
	UpdatedAt time.Time
}

// RecordRepository defines request record data access
type RecordRepository interface {
	Create(ctx context.Context, record *entity.RequestRecord) error
	// GetByID returns nil, nil when the record does not exist
	GetByID(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]*entity.RequestRecord, error)
	UpdateStatus(ctx context.Context, t entity.RequestType, id string, patch StatusPatch) error
	CountByStatus(ctx context.Context) (map[entity.RequestType]map[workflow.Status]int, error)
}

// AuditRepository defines audit trail data access. Entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByRecord(ctx context.Context, recordID string) ([]entity.AuditEntry, error)
}

// CodeSequencer hands out per-type, per-year sequence numbers
type CodeSequencer interface {
	Next(ctx context.Context, t entity.RequestType, year int) (int64, error)
}

// ProfileRepository defines user profile data access
type ProfileRepository interface {
	// GetByUserID returns nil, nil when no profile exists
	GetByUserID(ctx context.Context, userID string) (*entity.Profile, error)
	Upsert(ctx context.Context, profile *entity.Profile) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
