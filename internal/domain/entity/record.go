package entity

import (
	"time"

	"github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Requester is the submitting employee captured at submission time
type Requester struct {
	EmployeeID string `json:"employee_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Branch     string `json:"branch"`
	Department string `json:"department"`
}

// RequestRecord is one submitted form instance.
// ID, Code, Type, Requester and SubmittedAt never change after creation.
type RequestRecord struct {
	ID          string                 `json:"id"`
	Code        string                 `json:"code"`
	Type        RequestType            `json:"type"`
	Requester   Requester              `json:"requester"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Payload     map[string]interface{} `json:"payload"`
	Status      workflow.Status        `json:"status"`
	Audit       []AuditEntry           `json:"audit"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// AuditEntry records one signed-off transition. Entries are append-only.
type AuditEntry struct {
	ID                string            `json:"id"`
	RecordID          string            `json:"record_id"`
	Sequence          int               `json:"sequence"`
	ActorUserID       string            `json:"actor_user_id"`
	ActorName         string            `json:"actor_name"`
	ActorSignatureRef string            `json:"actor_signature_ref"`
	Role              workflow.Role     `json:"role_at_action"`
	ActedAt           time.Time         `json:"acted_at"`
	Note              string            `json:"note,omitempty"`
	FromStatus        workflow.Status   `json:"from_status"`
	ToStatus          workflow.Status   `json:"to_status"`
	Fields            map[string]string `json:"fields,omitempty"`
}

// IsOwnedBy returns true if the user submitted the record
func (r *RequestRecord) IsOwnedBy(userID string) bool {
	return userID != "" && r.Requester.UserID == userID
}

// LastEntry returns the most recent audit entry, or nil
func (r *RequestRecord) LastEntry() *AuditEntry {
	if len(r.Audit) == 0 {
		return nil
	}
	entry := r.Audit[len(r.Audit)-1]
	return &entry
}

// Clone returns a deep copy so callers can stage changes without touching the original
func (r *RequestRecord) Clone() *RequestRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Payload = ClonePayload(r.Payload)
	if r.Audit != nil {
		out.Audit = make([]AuditEntry, len(r.Audit))
		for i, e := range r.Audit {
			out.Audit[i] = e.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the entry
func (e AuditEntry) Clone() AuditEntry {
	if e.Fields != nil {
		fields := make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			fields[k] = v
		}
		e.Fields = fields
	}
	return e
}

// ClonePayload deep-copies a JSON-shaped payload
func ClonePayload(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return ClonePayload(val)
	case []interface{}:
		list := make([]interface{}, len(val))
		for i, item := range val {
			list[i] = cloneValue(item)
		}
		return list
	default:
		return val
	}
}
