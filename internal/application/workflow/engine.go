package workflow

import (
	"context"

	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// TransitionInput carries the data an actor attaches to a transition
type TransitionInput struct {
	Note   string            `json:"note"`
	Fields map[string]string `json:"fields"`
}

// LifecycleEngine creates records and moves them through their type's lifecycle.
// Every failure is returned as a *LifecycleError.
type LifecycleEngine interface {
	// Submit mints a code and persists a new record in its type's initial status
	Submit(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*entity.RequestRecord, error)

	// ApplyTransition validates and persists one transition against the record's current stored status.
	// The passed record is never modified.
	ApplyTransition(ctx context.Context, record *entity.RequestRecord, to domainwf.Status, actor entity.ActorContext, input TransitionInput) (*entity.RequestRecord, error)

	// AvailableActions returns the transitions the actor may trigger on the record as it is
	AvailableActions(actor entity.ActorContext, record *entity.RequestRecord) []domainwf.Edge
}

// CodeMinter issues reference codes for new records
type CodeMinter interface {
	NextCode(ctx context.Context, t entity.RequestType) (string, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
