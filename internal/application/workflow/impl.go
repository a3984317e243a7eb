package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/branch-forms/internal/application/dispatcher"
	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/event"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// engineImpl is the concrete implementation of LifecycleEngine
type engineImpl struct {
	registry  *Registry
	gate      *Gate
	codes     CodeMinter
	records   port.RecordRepository
	audit     port.AuditRepository
	txManager port.TransactionManager

	dispatcher     dispatcher.Dispatcher
	logger         Logger
	now            func() time.Time
	persistTimeout time.Duration
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source for audit and submission timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithPersistTimeout bounds each storage round trip
func WithPersistTimeout(timeout time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.persistTimeout = timeout
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(
	registry *Registry,
	gate *Gate,
	codes CodeMinter,
	records port.RecordRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) LifecycleEngine {
	e := &engineImpl{
		registry:       registry,
		gate:           gate,
		codes:          codes,
		records:        records,
		audit:          audit,
		txManager:      txManager,
		now:            time.Now,
		persistTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.persistTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.persistTimeout)
}

// Submit mints a code and persists a new record in its type's initial status
func (e *engineImpl) Submit(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*entity.RequestRecord, error) {
	if !actor.IsAuthenticated() {
		return nil, newError(KindUnauthorized, "submission requires a resolved actor")
	}
	def, err := e.registry.Definition(t)
	if err != nil {
		return nil, wrapError(KindNoSuchTransition, err, "cannot submit")
	}

	sctx, cancel := e.storageContext(ctx)
	defer cancel()

	code, err := e.codes.NextCode(sctx, t)
	if err != nil {
		e.logError("Code assignment failed", "request_type", t, "error", err)
		return nil, wrapError(KindCodeAssignmentFailed, err, "no code for %s", t)
	}

	now := e.now()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	record := &entity.RequestRecord{
		ID:          uuid.NewString(),
		Code:        code,
		Type:        t,
		Requester:   actor.Requester(),
		SubmittedAt: now,
		Payload:     entity.ClonePayload(payload),
		Status:      def.Initial(),
		Audit:       []entity.AuditEntry{},
		UpdatedAt:   now,
	}

	if err := e.records.Create(sctx, record); err != nil {
		if errors.Is(err, port.ErrDuplicateCode) {
			e.logError("Duplicate reference code", "code", code, "error", err)
			return nil, wrapError(KindCodeAssignmentFailed, err, "code %s already assigned", code)
		}
		e.logError("Failed to persist record", "code", code, "error", err)
		return nil, wrapError(KindPersistenceFailed, err, "create %s", code)
	}

	e.logInfo("Record submitted",
		"record_id", record.ID,
		"code", record.Code,
		"status", record.Status,
	)

	e.emit(ctx, event.TypeRecordSubmitted, record, map[string]interface{}{
		event.KeyCode:     record.Code,
		event.KeyToStatus: record.Status.String(),
		event.KeyActor:    actor.UserID,
	})

	return record.Clone(), nil
}

// ApplyTransition validates and persists one transition against the record's current stored status
func (e *engineImpl) ApplyTransition(ctx context.Context, record *entity.RequestRecord, to domainwf.Status, actor entity.ActorContext, input TransitionInput) (*entity.RequestRecord, error) {
	if record == nil || record.ID == "" {
		return nil, newError(KindRecordNotFound, "no record given")
	}
	def, err := e.registry.Definition(record.Type)
	if err != nil {
		return nil, wrapError(KindNoSuchTransition, err, "record %s", record.ID)
	}

	sctx, cancel := e.storageContext(ctx)
	defer cancel()

	// the caller's copy may be stale; decide against what is stored now
	current, err := e.records.GetByID(sctx, record.Type, record.ID)
	if err != nil {
		return nil, wrapError(KindPersistenceFailed, err, "reload %s", record.ID)
	}
	if current == nil {
		return nil, newError(KindRecordNotFound, "%s %s", record.Type, record.ID)
	}

	machine, err := def.Machine(current.Status)
	if err != nil {
		return nil, wrapError(KindNoSuchTransition, err, "record %s", current.Code)
	}
	from := machine.State()
	edge, err := machine.Fire(to)
	if err != nil {
		return nil, wrapError(KindNoSuchTransition, err, "record %s", current.Code)
	}

	if !actor.IsAuthenticated() || !e.gate.Permits(actor.Role, current.Type, from, to) {
		return nil, newError(KindUnauthorized, "role %s may not move %s from %s to %s", actor.Role, current.Code, from, to)
	}

	in, err := collectInput(edge, input.Note, input.Fields, e.now())
	if err != nil {
		return nil, err
	}

	now := e.now()
	entry := entity.AuditEntry{
		ID:                uuid.NewString(),
		RecordID:          current.ID,
		Sequence:          len(current.Audit) + 1,
		ActorUserID:       actor.UserID,
		ActorName:         actor.Name,
		ActorSignatureRef: actor.SignatureRef,
		Role:              actor.Role,
		ActedAt:           now,
		Note:              in.note,
		FromStatus:        from,
		ToStatus:          to,
		Fields:            in.fields,
	}

	next := current.Clone()
	next.Status = to
	next.UpdatedAt = now

	patch := port.StatusPatch{From: from, To: to, UpdatedAt: now}
	if edge.PatchesPayload {
		if next.Payload == nil {
			next.Payload = make(map[string]interface{})
		}
		for k, v := range in.fields {
			next.Payload[k] = v
		}
		patch.Payload = next.Payload
	}

	err = e.txManager.WithTransaction(sctx, func(txCtx context.Context) error {
		if err := e.records.UpdateStatus(txCtx, current.Type, current.ID, patch); err != nil {
			return err
		}
		return e.audit.Append(txCtx, &entry)
	})
	if err != nil {
		if errors.Is(err, port.ErrStaleStatus) {
			return nil, wrapError(KindNoSuchTransition, err, "record %s left %s before the write", current.Code, from)
		}
		e.logError("Failed to persist transition",
			"record_id", current.ID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil, wrapError(KindPersistenceFailed, err, "transition %s", current.Code)
	}

	next.Audit = append(next.Audit, entry)

	e.logInfo("Record transitioned",
		"record_id", next.ID,
		"code", next.Code,
		"from", from,
		"to", to,
		"role", actor.Role,
	)

	e.emit(ctx, event.TypeRecordTransitioned, next, map[string]interface{}{
		event.KeyCode:       next.Code,
		event.KeyFromStatus: from.String(),
		event.KeyToStatus:   to.String(),
		event.KeyActor:      actor.UserID,
		event.KeyRole:       actor.Role.String(),
	})

	return next, nil
}

// AvailableActions returns the transitions the actor may trigger on the record as it is
func (e *engineImpl) AvailableActions(actor entity.ActorContext, record *entity.RequestRecord) []domainwf.Edge {
	if record == nil || !actor.IsAuthenticated() {
		return nil
	}
	return e.gate.CanAct(actor.Role, record.Type, record.Status)
}

func (e *engineImpl) emit(ctx context.Context, t event.Type, record *entity.RequestRecord, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, record.ID, record.Type.String(), payload))
}

func (e *engineImpl) logInfo(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}

func (e *engineImpl) logError(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, kv...)
	}
}
