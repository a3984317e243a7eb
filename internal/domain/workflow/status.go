package workflow

// Status is a node in a request type's lifecycle
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusEndorsed     Status = "ENDORSED"
	StatusApproved     Status = "APPROVED"
	StatusDeclined     Status = "DECLINED"
	StatusReceived     Status = "RECEIVED"
	StatusAccomplished Status = "ACCOMPLISHED"
	StatusCompleted    Status = "COMPLETED"
)

var validStatuses = map[Status]bool{
	StatusPending:      true,
	StatusEndorsed:     true,
	StatusApproved:     true,
	StatusDeclined:     true,
	StatusReceived:     true,
	StatusAccomplished: true,
	StatusCompleted:    true,
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status belongs to the shared status vocabulary.
// Whether a type actually uses it is decided by that type's Definition.
func (s Status) IsValid() bool {
	return validStatuses[s]
}
