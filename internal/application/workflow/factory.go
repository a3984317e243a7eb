package workflow

import (
	"fmt"

	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Registry holds the lifecycle definition of every request type
type Registry struct {
	defs map[entity.RequestType]*domainwf.Definition
}

// NewRegistry builds the definitions for all request types
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[entity.RequestType]*domainwf.Definition)}

	for _, t := range []entity.RequestType{
		entity.TypePurchaseRequest,
		entity.TypeCashAdvance,
		entity.TypeOvertimeApproval,
		entity.TypeLeaveApplication,
		entity.TypeInterbranchTransfer,
		entity.TypeTransmittal,
	} {
		r.defs[t] = buildApprovalFlow(t, domainwf.StatusReceived)
	}

	for _, t := range []entity.RequestType{
		entity.TypeReimbursement,
		entity.TypeRevolvingFund,
		entity.TypeCreditCardAcknowledgement,
	} {
		r.defs[t] = buildApprovalFlow(t, domainwf.StatusCompleted)
	}

	r.defs[entity.TypeCashAdvanceLiquidation] = buildLiquidation()
	r.defs[entity.TypeCAReceipt] = buildCAReceipt()
	r.defs[entity.TypePaymentRequest] = buildPaymentRequest()
	r.defs[entity.TypeMaintenanceRepair] = buildMaintenanceRepair()

	return r
}

// Definition returns the lifecycle definition for a request type
func (r *Registry) Definition(t entity.RequestType) (*domainwf.Definition, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("no lifecycle defined for request type %q", t)
	}
	return def, nil
}

// Types returns the request types with a definition, in display order
func (r *Registry) Types() []entity.RequestType {
	types := make([]entity.RequestType, 0, len(r.defs))
	for _, t := range entity.AllRequestTypes() {
		if _, ok := r.defs[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// configurePendingReview adds the approve/decline pair shared by every reviewed type
func configurePendingReview(b domainwf.DefinitionBuilder, from domainwf.Status, role domainwf.Role, to domainwf.Status) {
	b.Configure(from).
		Permit(to, role).
		Permit(domainwf.StatusDeclined, role, domainwf.RequireNote())
}

// buildApprovalFlow is Pending -> Approved -> closing, with a decline out of Pending
func buildApprovalFlow(t entity.RequestType, closing domainwf.Status) *domainwf.Definition {
	b := domainwf.NewBuilder(t.String(), domainwf.StatusPending)

	configurePendingReview(b, domainwf.StatusPending, domainwf.RoleApprove, domainwf.StatusApproved)

	b.Configure(domainwf.StatusApproved).
		Permit(closing, domainwf.RoleAccounting)

	return b.Build()
}

// buildLiquidation inserts an accounting endorsement before approval
func buildLiquidation() *domainwf.Definition {
	b := domainwf.NewBuilder(entity.TypeCashAdvanceLiquidation.String(), domainwf.StatusPending)

	configurePendingReview(b, domainwf.StatusPending, domainwf.RoleAccounting, domainwf.StatusEndorsed)
	configurePendingReview(b, domainwf.StatusEndorsed, domainwf.RoleApprove, domainwf.StatusApproved)

	b.Configure(domainwf.StatusApproved).
		Permit(domainwf.StatusCompleted, domainwf.RoleAccounting)

	return b.Build()
}

// buildCAReceipt is created already received and is read-only from then on
func buildCAReceipt() *domainwf.Definition {
	return domainwf.NewBuilder(entity.TypeCAReceipt.String(), domainwf.StatusReceived).Build()
}

func buildPaymentRequest() *domainwf.Definition {
	b := domainwf.NewBuilder(entity.TypePaymentRequest.String(), domainwf.StatusPending)

	configurePendingReview(b, domainwf.StatusPending, domainwf.RoleApprove, domainwf.StatusApproved)

	b.Configure(domainwf.StatusApproved).
		Permit(domainwf.StatusReceived, domainwf.RoleAccounting)

	b.Configure(domainwf.StatusReceived).
		Permit(domainwf.StatusCompleted, domainwf.RoleAccounting,
			domainwf.RequireFields(entity.FieldGLCode, entity.FieldORNo, entity.FieldGLAmount, entity.FieldCheckNumber))

	return b.Build()
}

func buildMaintenanceRepair() *domainwf.Definition {
	b := domainwf.NewBuilder(entity.TypeMaintenanceRepair.String(), domainwf.StatusPending)

	configurePendingReview(b, domainwf.StatusPending, domainwf.RoleApprove, domainwf.StatusApproved)

	b.Configure(domainwf.StatusApproved).
		Permit(domainwf.StatusAccomplished, domainwf.RoleAccomplish,
			domainwf.RequireFields(entity.FieldPerformedBy, entity.FieldRemarks),
			domainwf.OptionalFields(entity.FieldDateCompleted),
			domainwf.PatchPayload())

	return b.Build()
}
