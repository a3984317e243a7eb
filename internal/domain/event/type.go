package event

// Type identifies the type of domain event
type Type string

const (
	TypeRecordSubmitted    Type = "record.submitted"
	TypeRecordTransitioned Type = "record.transitioned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRecordSubmitted, TypeRecordTransitioned:
		return true
	default:
		return false
	}
}
