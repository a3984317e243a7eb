package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/application/projection"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Mock implementations

type mockLogger struct{}

func (mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRecordRepo struct {
	getByIDFunc func(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error)
	listFunc    func(ctx context.Context, filter port.RecordFilter) ([]*entity.RequestRecord, error)
}

func (m *mockRecordRepo) Create(ctx context.Context, record *entity.RequestRecord) error {
	return nil
}

func (m *mockRecordRepo) GetByID(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, t, id)
	}
	return nil, nil
}

func (m *mockRecordRepo) List(ctx context.Context, filter port.RecordFilter) ([]*entity.RequestRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockRecordRepo) UpdateStatus(ctx context.Context, t entity.RequestType, id string, patch port.StatusPatch) error {
	return nil
}

func (m *mockRecordRepo) CountByStatus(ctx context.Context) (map[entity.RequestType]map[domainwf.Status]int, error) {
	return nil, nil
}

type mockEngine struct {
	submitFunc     func(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*entity.RequestRecord, error)
	transitionFunc func(ctx context.Context, record *entity.RequestRecord, to domainwf.Status, actor entity.ActorContext, input workflow.TransitionInput) (*entity.RequestRecord, error)
	gate           *workflow.Gate
}

func (m *mockEngine) Submit(ctx context.Context, actor entity.ActorContext, t entity.RequestType, payload map[string]interface{}) (*entity.RequestRecord, error) {
	return m.submitFunc(ctx, actor, t, payload)
}

func (m *mockEngine) ApplyTransition(ctx context.Context, record *entity.RequestRecord, to domainwf.Status, actor entity.ActorContext, input workflow.TransitionInput) (*entity.RequestRecord, error) {
	return m.transitionFunc(ctx, record, to, actor, input)
}

func (m *mockEngine) AvailableActions(actor entity.ActorContext, record *entity.RequestRecord) []domainwf.Edge {
	return m.gate.CanAct(actor.Role, record.Type, record.Status)
}

type mockProfileRepo struct {
	profiles  map[string]*entity.Profile
	getErr    error
	upsertErr error
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[userID], nil
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *entity.Profile) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.profiles[profile.UserID] = profile
	return nil
}

type captureWriter struct {
	records []*entity.RequestRecord
	err     error
}

func (c *captureWriter) WriteReport(ctx context.Context, w io.Writer, t entity.RequestType, records []*entity.RequestRecord) error {
	c.records = records
	if c.err != nil {
		return c.err
	}
	_, err := w.Write([]byte("xlsx"))
	return err
}

func newRequestService(records port.RecordRepository, engine *mockEngine) (RequestService, *workflow.Gate) {
	registry := workflow.NewRegistry()
	gate := workflow.NewGate(registry)
	if engine == nil {
		engine = &mockEngine{}
	}
	engine.gate = gate
	return NewRequestService(registry, gate, engine, records, projection.NewStatusBoard(), mockLogger{}), gate
}

func approver() entity.ActorContext {
	return entity.ActorContext{UserID: "u-approve", Name: "Approver", Role: domainwf.RoleApprove}
}

// RequestService

func TestRequestService_Forms(t *testing.T) {
	svc, _ := newRequestService(&mockRecordRepo{}, nil)

	forms := svc.Forms()
	require.Len(t, forms, 13)
	assert.Equal(t, entity.TypePurchaseRequest, forms[0].Type)
	assert.Equal(t, "PRF", forms[0].Prefix)

	for _, f := range forms {
		if f.Type == entity.TypeCAReceipt {
			assert.Empty(t, f.Transitions)
			assert.Equal(t, domainwf.StatusReceived, f.Initial)
		}
		if f.Type == entity.TypePaymentRequest {
			assert.Len(t, f.Transitions[domainwf.StatusReceived], 1)
		}
	}
}

func TestRequestService_Get(t *testing.T) {
	rec := &entity.RequestRecord{
		ID:        "r1",
		Type:      entity.TypePurchaseRequest,
		Status:    domainwf.StatusPending,
		Requester: entity.Requester{UserID: "owner"},
	}
	repo := &mockRecordRepo{
		getByIDFunc: func(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error) {
			if id == "r1" {
				return rec, nil
			}
			return nil, nil
		},
	}
	svc, _ := newRequestService(repo, nil)

	t.Run("approver sees actions", func(t *testing.T) {
		detail, err := svc.Get(context.Background(), approver(), entity.TypePurchaseRequest, "r1")
		require.NoError(t, err)
		assert.Len(t, detail.Actions, 2)
	})

	t.Run("owner sees record without actions", func(t *testing.T) {
		owner := entity.ActorContext{UserID: "owner", Role: domainwf.RoleStaff}
		detail, err := svc.Get(context.Background(), owner, entity.TypePurchaseRequest, "r1")
		require.NoError(t, err)
		assert.NotNil(t, detail.Actions)
		assert.Empty(t, detail.Actions)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		stranger := entity.ActorContext{UserID: "other", Role: domainwf.RoleStaff}
		_, err := svc.Get(context.Background(), stranger, entity.TypePurchaseRequest, "r1")
		assert.ErrorIs(t, err, workflow.ErrUnauthorized)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := svc.Get(context.Background(), approver(), entity.TypePurchaseRequest, "nope")
		assert.ErrorIs(t, err, workflow.ErrRecordNotFound)
	})
}

func TestRequestService_GetStorageError(t *testing.T) {
	repo := &mockRecordRepo{
		getByIDFunc: func(ctx context.Context, t entity.RequestType, id string) (*entity.RequestRecord, error) {
			return nil, errors.New("disk I/O error")
		},
	}
	svc, _ := newRequestService(repo, nil)

	_, err := svc.Get(context.Background(), approver(), entity.TypePurchaseRequest, "r1")
	assert.ErrorIs(t, err, workflow.ErrPersistenceFailed)
}

func TestRequestService_ListPushesOwnerFilter(t *testing.T) {
	var seen port.RecordFilter
	repo := &mockRecordRepo{
		listFunc: func(ctx context.Context, filter port.RecordFilter) ([]*entity.RequestRecord, error) {
			seen = filter
			return []*entity.RequestRecord{
				{Code: "TRN-2024-00001", Type: entity.TypeTransmittal, Requester: entity.Requester{UserID: "u-approve"}},
				{Code: "TRN-2024-00002", Type: entity.TypeTransmittal, Requester: entity.Requester{UserID: "u-approve"}},
			}, nil
		},
	}
	svc, _ := newRequestService(repo, nil)

	page, err := svc.List(context.Background(), approver(), entity.TypeTransmittal, projection.Query{})
	require.NoError(t, err)
	assert.Equal(t, "u-approve", seen.RequesterUserID)
	assert.Equal(t, entity.TypeTransmittal, seen.Type)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "TRN-2024-00002", page.Items[0].Code)

	_, err = svc.List(context.Background(), approver(), entity.TypeTransmittal, projection.Query{View: projection.ViewPending})
	require.NoError(t, err)
	assert.Empty(t, seen.RequesterUserID)
}

func TestRequestService_Transition(t *testing.T) {
	engine := &mockEngine{
		transitionFunc: func(ctx context.Context, record *entity.RequestRecord, to domainwf.Status, actor entity.ActorContext, input workflow.TransitionInput) (*entity.RequestRecord, error) {
			if input.Note == "" && to == domainwf.StatusDeclined {
				return nil, &workflow.LifecycleError{Kind: workflow.KindMissingRequiredField, Field: entity.FieldDeclinedReason}
			}
			return &entity.RequestRecord{ID: record.ID, Type: record.Type, Status: to}, nil
		},
	}
	svc, _ := newRequestService(&mockRecordRepo{}, engine)

	detail, err := svc.Transition(context.Background(), approver(), entity.TypeTransmittal, "r1", domainwf.StatusApproved, workflow.TransitionInput{})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusApproved, detail.Record.Status)
	assert.Empty(t, detail.Actions, "approver has nothing left to do on an approved transmittal")

	_, err = svc.Transition(context.Background(), approver(), entity.TypeTransmittal, "r1", domainwf.StatusDeclined, workflow.TransitionInput{})
	assert.ErrorIs(t, err, workflow.ErrMissingRequiredField)
}

// ProfileService

func TestProfileService(t *testing.T) {
	repo := &mockProfileRepo{profiles: map[string]*entity.Profile{}}
	svc := NewProfileService(repo, mockLogger{})
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, &entity.Profile{UserID: "u1", Name: "Liza", Role: "accounting", SignatureRef: "sig/u1.png"}))
	assert.False(t, repo.profiles["u1"].CreatedAt.IsZero())

	actor, err := svc.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainwf.RoleAccounting, actor.Role)
	assert.Equal(t, "sig/u1.png", actor.SignatureRef)

	_, err = svc.Resolve(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.Resolve(ctx, "  ")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.Error(t, svc.Save(ctx, &entity.Profile{UserID: "u2"}))

	for _, role := range []string{"Approve", "acounting", ""} {
		err := svc.Save(ctx, &entity.Profile{UserID: "u3", Name: "Typo", Role: role})
		assert.Error(t, err, "role %q", role)
	}
	_, stored := repo.profiles["u3"]
	assert.False(t, stored)

	repo.getErr = errors.New("locked")
	_, err = svc.Resolve(ctx, "u1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
}

// ReportService

func TestReportService_Export(t *testing.T) {
	repo := &mockRecordRepo{
		listFunc: func(ctx context.Context, filter port.RecordFilter) ([]*entity.RequestRecord, error) {
			return []*entity.RequestRecord{
				{Code: "RFR-2024-00001", Type: entity.TypeRevolvingFund},
				{Code: "RFR-2024-00003", Type: entity.TypeRevolvingFund},
				{Code: "RFR-2024-00002", Type: entity.TypeRevolvingFund},
			}, nil
		},
	}
	writer := &captureWriter{}
	gate := workflow.NewGate(workflow.NewRegistry())
	svc := NewReportService(gate, repo, writer, mockLogger{})

	var buf bytes.Buffer
	accounting := entity.ActorContext{UserID: "acc", Role: domainwf.RoleAccounting}
	require.NoError(t, svc.Export(context.Background(), accounting, entity.TypeRevolvingFund, &buf))
	assert.Equal(t, "xlsx", buf.String())
	require.Len(t, writer.records, 3)
	assert.Equal(t, "RFR-2024-00003", writer.records[0].Code)

	staff := entity.ActorContext{UserID: "s", Role: domainwf.RoleStaff}
	err := svc.Export(context.Background(), staff, entity.TypeRevolvingFund, &buf)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	writer.err = errors.New("zip failure")
	assert.Error(t, svc.Export(context.Background(), accounting, entity.TypeRevolvingFund, &buf))
}
