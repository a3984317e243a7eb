package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle failure
type Kind string

const (
	KindNoSuchTransition     Kind = "NO_SUCH_TRANSITION"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindMissingRequiredField Kind = "MISSING_REQUIRED_FIELD"
	KindInvalidFieldValue    Kind = "INVALID_FIELD_VALUE"
	KindCodeAssignmentFailed Kind = "CODE_ASSIGNMENT_FAILED"
	KindPersistenceFailed    Kind = "PERSISTENCE_FAILED"
	KindRecordNotFound       Kind = "RECORD_NOT_FOUND"
)

// Sentinels for errors.Is matching against a *LifecycleError
var (
	ErrNoSuchTransition     = errors.New("no such transition")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidFieldValue    = errors.New("invalid field value")
	ErrCodeAssignmentFailed = errors.New("code assignment failed")
	ErrPersistenceFailed    = errors.New("persistence failed")
	ErrRecordNotFound       = errors.New("record not found")
)

var kindSentinels = map[Kind]error{
	KindNoSuchTransition:     ErrNoSuchTransition,
	KindUnauthorized:         ErrUnauthorized,
	KindMissingRequiredField: ErrMissingRequiredField,
	KindInvalidFieldValue:    ErrInvalidFieldValue,
	KindCodeAssignmentFailed: ErrCodeAssignmentFailed,
	KindPersistenceFailed:    ErrPersistenceFailed,
	KindRecordNotFound:       ErrRecordNotFound,
}

// LifecycleError is the single error type returned by the engine
type LifecycleError struct {
	Kind  Kind
	Field string // set for MissingRequiredField and InvalidFieldValue
	Msg   string
	Err   error
}

func (e *LifecycleError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += "(" + e.Field + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the error's kind
func (e *LifecycleError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Refresh returns true if the caller's view of the record is stale
func (e *LifecycleError) Refresh() bool {
	return e.Kind == KindNoSuchTransition || e.Kind == KindUnauthorized
}

// Retryable returns true if the same action may succeed when re-presented
func (e *LifecycleError) Retryable() bool {
	return e.Kind == KindPersistenceFailed || e.Kind == KindCodeAssignmentFailed
}

func newError(kind Kind, format string, args ...interface{}) *LifecycleError {
	return &LifecycleError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...interface{}) *LifecycleError {
	return &LifecycleError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func fieldError(kind Kind, field string) *LifecycleError {
	return &LifecycleError{Kind: kind, Field: field}
}

// AsLifecycleError extracts a *LifecycleError from an error chain
func AsLifecycleError(err error) (*LifecycleError, bool) {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// NewLifecycleError builds an error of the given kind for callers outside the engine
func NewLifecycleError(kind Kind, msg string) *LifecycleError {
	return &LifecycleError{Kind: kind, Msg: msg}
}
