package projection

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/branch-forms/internal/application/dispatcher"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/event"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

func record(seq int, owner string, status domainwf.Status) *entity.RequestRecord {
	return &entity.RequestRecord{
		ID:        fmt.Sprintf("rec-%d", seq),
		Code:      fmt.Sprintf("PAY-2024-%05d", seq),
		Type:      entity.TypePaymentRequest,
		Status:    status,
		Requester: entity.Requester{UserID: owner, Name: "Name " + owner, Branch: "Davao"},
	}
}

func actor(id string, role domainwf.Role) entity.ActorContext {
	return entity.ActorContext{UserID: id, Role: role}
}

func codes(p Page) []string {
	out := make([]string, len(p.Items))
	for i, r := range p.Items {
		out[i] = r.Code
	}
	return out
}

func fixtureRecords() []*entity.RequestRecord {
	return []*entity.RequestRecord{
		record(1, "ana", domainwf.StatusCompleted),
		record(3, "ben", domainwf.StatusPending),
		record(2, "ana", domainwf.StatusPending),
		record(4, "ana", domainwf.StatusApproved),
		record(5, "ben", domainwf.StatusReceived),
		record(6, "ben", domainwf.StatusDeclined),
	}
}

func TestProject_Views(t *testing.T) {
	gate := workflow.NewGate(workflow.NewRegistry())
	records := fixtureRecords()

	tests := []struct {
		name  string
		actor entity.ActorContext
		view  View
		want  []string
	}{
		{"mine", actor("ana", domainwf.RoleStaff), ViewMine,
			[]string{"PAY-2024-00004", "PAY-2024-00002", "PAY-2024-00001"}},
		{"approver pending queue", actor("x", domainwf.RoleApprove), ViewPending,
			[]string{"PAY-2024-00003", "PAY-2024-00002"}},
		{"accounting approved queue", actor("y", domainwf.RoleAccounting), ViewApproved,
			[]string{"PAY-2024-00005", "PAY-2024-00004"}},
		{"accounting has no pending queue", actor("y", domainwf.RoleAccounting), ViewPending, []string{}},
		{"staff sees no queue", actor("ana", domainwf.RoleStaff), ViewApproved, []string{}},
		{"accounting history", actor("y", domainwf.RoleAccounting), ViewHistory,
			[]string{"PAY-2024-00006", "PAY-2024-00005", "PAY-2024-00004", "PAY-2024-00003", "PAY-2024-00002", "PAY-2024-00001"}},
		{"staff history is own records", actor("ben", domainwf.RoleStaff), ViewHistory,
			[]string{"PAY-2024-00006", "PAY-2024-00005", "PAY-2024-00003"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Project(gate, tt.actor, records, Query{View: tt.view})
			assert.Equal(t, tt.want, codes(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestProject_DoesNotMutate(t *testing.T) {
	gate := workflow.NewGate(workflow.NewRegistry())
	records := fixtureRecords()

	Project(gate, actor("y", domainwf.RoleAccounting), records, Query{View: ViewHistory})

	assert.Equal(t, "PAY-2024-00001", records[0].Code, "input order must be kept")
	assert.Equal(t, domainwf.StatusCompleted, records[0].Status)
}

func TestProject_SearchAndPaging(t *testing.T) {
	gate := workflow.NewGate(workflow.NewRegistry())
	var records []*entity.RequestRecord
	for i := 1; i <= 25; i++ {
		records = append(records, record(i, "ana", domainwf.StatusPending))
	}
	staff := actor("ana", domainwf.RoleStaff)

	page := Project(gate, staff, records, Query{View: ViewMine, Page: 2, Limit: 10})
	assert.Equal(t, 25, page.Total)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "PAY-2024-00015", page.Items[0].Code)

	page = Project(gate, staff, records, Query{View: ViewMine, Page: 3, Limit: 10})
	assert.Len(t, page.Items, 5)

	page = Project(gate, staff, records, Query{View: ViewMine, Page: 9, Limit: 10})
	assert.Empty(t, page.Items)
	assert.Equal(t, 25, page.Total)

	huge := math.MaxInt/MaxLimit + 2
	page = Project(gate, staff, records, Query{View: ViewMine, Page: huge, Limit: MaxLimit})
	assert.Empty(t, page.Items)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, huge, page.Page)

	page = Project(gate, staff, records, Query{View: ViewMine, Page: math.MaxInt, Limit: 10})
	assert.Empty(t, page.Items)

	page = Project(gate, staff, records, Query{View: ViewMine, Search: "0001"})
	assert.Equal(t, []string{"PAY-2024-00019", "PAY-2024-00018", "PAY-2024-00017", "PAY-2024-00016", "PAY-2024-00015",
		"PAY-2024-00014", "PAY-2024-00013", "PAY-2024-00012", "PAY-2024-00011", "PAY-2024-00010", "PAY-2024-00001"}, codes(page))
	assert.Equal(t, 11, page.Total)

	page = Project(gate, staff, records, Query{View: ViewMine, Search: "davao", Limit: 500})
	assert.Equal(t, MaxLimit, page.Limit)
	assert.Equal(t, 25, page.Total)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewMine, v)

	v, err = ParseView(" Pending ")
	require.NoError(t, err)
	assert.Equal(t, ViewPending, v)

	_, err = ParseView("everything")
	assert.Error(t, err)
}

func TestStatusBoard(t *testing.T) {
	d := dispatcher.NewDispatcher()
	board := NewStatusBoard()
	board.Seed(map[entity.RequestType]map[domainwf.Status]int{
		entity.TypeTransmittal: {domainwf.StatusPending: 2},
	})
	board.Register(d)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRecordSubmitted, "r1", entity.TypeTransmittal.String(),
		map[string]interface{}{event.KeyToStatus: "PENDING"})))
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRecordTransitioned, "r1", entity.TypeTransmittal.String(),
		map[string]interface{}{event.KeyFromStatus: "PENDING", event.KeyToStatus: "APPROVED"})))
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeRecordSubmitted, "r2", entity.TypeCAReceipt.String(),
		map[string]interface{}{event.KeyToStatus: "RECEIVED"})))

	snap := board.Snapshot()
	assert.Equal(t, 2, snap[entity.TypeTransmittal][domainwf.StatusPending])
	assert.Equal(t, 1, snap[entity.TypeTransmittal][domainwf.StatusApproved])
	assert.Equal(t, 1, snap[entity.TypeCAReceipt][domainwf.StatusReceived])

	snap[entity.TypeTransmittal][domainwf.StatusPending] = 99
	assert.Equal(t, 2, board.Snapshot()[entity.TypeTransmittal][domainwf.StatusPending])
}
