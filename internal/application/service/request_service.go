package service

import (
	"context"
	"fmt"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/application/projection"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RecordDetail is a record together with what the viewer may do next
type RecordDetail struct {
	Record  *entity.RequestRecord `json:"record"`
	Actions []domainwf.Edge       `json:"actions"`
}

// FormInfo describes one request type and its lifecycle
type FormInfo struct {
	Type        entity.RequestType                  `json:"type"`
	Prefix      string                              `json:"prefix"`
	Label       string                              `json:"label"`
	Initial     domainwf.Status                     `json:"initial"`
	Statuses    []domainwf.Status                   `json:"statuses"`
	Transitions map[domainwf.Status][]domainwf.Edge `json:"transitions"`
}

// RequestService is the use-case layer over the lifecycle engine
type RequestService interface {
	Forms() []FormInfo
	Submit(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*RecordDetail, error)
	Get(ctx context.Context, actor entity.ActorContext, t entity.RequestType, id string) (*RecordDetail, error)
	List(ctx context.Context, actor entity.ActorContext, t entity.RequestType, q projection.Query) (*projection.Page, error)
	Transition(ctx context.Context, actor entity.ActorContext, t entity.RequestType, id string, to domainwf.Status, input workflow.TransitionInput) (*RecordDetail, error)
	Dashboard() map[entity.RequestType]map[domainwf.Status]int
}

type requestServiceImpl struct {
	registry *workflow.Registry
	gate     *workflow.Gate
	engine   workflow.LifecycleEngine
	records  port.RecordRepository
	board    *projection.StatusBoard
	logger   Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	registry *workflow.Registry,
	gate *workflow.Gate,
	engine workflow.LifecycleEngine,
	records port.RecordRepository,
	board *projection.StatusBoard,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		registry: registry,
		gate:     gate,
		engine:   engine,
		records:  records,
		board:    board,
		logger:   logger,
	}
}

// Forms lists every request type with its lifecycle table
func (s *requestServiceImpl) Forms() []FormInfo {
	forms := make([]FormInfo, 0, len(s.registry.Types()))
	for _, t := range s.registry.Types() {
		def, err := s.registry.Definition(t)
		if err != nil {
			continue
		}
		info := FormInfo{
			Type:        t,
			Prefix:      t.Prefix(),
			Label:       t.Label(),
			Initial:     def.Initial(),
			Statuses:    def.States(),
			Transitions: make(map[domainwf.Status][]domainwf.Edge),
		}
		for _, st := range info.Statuses {
			if edges := def.Edges(st); len(edges) > 0 {
				info.Transitions[st] = edges
			}
		}
		forms = append(forms, info)
	}
	return forms
}

// Submit creates a new record for the actor
func (s *requestServiceImpl) Submit(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*RecordDetail, error) {
	rec, err := s.engine.Submit(ctx, actor, t, payload)
	if err != nil {
		return nil, err
	}
	return s.detail(actor, rec), nil
}

// Get returns a record the actor may view
func (s *requestServiceImpl) Get(ctx context.Context, actor entity.ActorContext, t entity.RequestType, id string) (*RecordDetail, error) {
	rec, err := s.records.GetByID(ctx, t, id)
	if err != nil {
		s.logger.Error("Failed to load record", "request_type", t, "id", id, "error", err)
		return nil, &workflow.LifecycleError{Kind: workflow.KindPersistenceFailed, Msg: "load record", Err: err}
	}
	if rec == nil {
		return nil, workflow.NewLifecycleError(workflow.KindRecordNotFound, fmt.Sprintf("%s %s", t, id))
	}
	if !s.gate.CanView(actor, rec) {
		return nil, workflow.NewLifecycleError(workflow.KindUnauthorized, "record is not visible to this user")
	}
	return s.detail(actor, rec), nil
}

// List projects the stored records of a type into the requested view
func (s *requestServiceImpl) List(ctx context.Context, actor entity.ActorContext, t entity.RequestType, q projection.Query) (*projection.Page, error) {
	q = q.Normalize()

	filter := port.RecordFilter{Type: t}
	if q.View == projection.ViewMine {
		filter.RequesterUserID = actor.UserID
	}

	records, err := s.records.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list records", "request_type", t, "view", q.View, "error", err)
		return nil, &workflow.LifecycleError{Kind: workflow.KindPersistenceFailed, Msg: "list records", Err: err}
	}

	page := projection.Project(s.gate, actor, records, q)
	return &page, nil
}

// Transition applies a transition on behalf of the actor
func (s *requestServiceImpl) Transition(ctx context.Context, actor entity.ActorContext, t entity.RequestType, id string, to domainwf.Status, input workflow.TransitionInput) (*RecordDetail, error) {
	rec, err := s.engine.ApplyTransition(ctx, &entity.RequestRecord{ID: id, Type: t}, to, actor, input)
	if err != nil {
		s.logger.Info("Transition rejected",
			"request_type", t,
			"id", id,
			"to", to,
			"user_id", actor.UserID,
			"error", err,
		)
		return nil, err
	}
	return s.detail(actor, rec), nil
}

// Dashboard returns per-type, per-status counts
func (s *requestServiceImpl) Dashboard() map[entity.RequestType]map[domainwf.Status]int {
	return s.board.Snapshot()
}

func (s *requestServiceImpl) detail(actor entity.ActorContext, rec *entity.RequestRecord) *RecordDetail {
	actions := s.engine.AvailableActions(actor, rec)
	if actions == nil {
		actions = []domainwf.Edge{}
	}
	return &RecordDetail{Record: rec, Actions: actions}
}
