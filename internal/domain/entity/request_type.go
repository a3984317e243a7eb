package entity

import "fmt"

// RequestType identifies the form kind a record belongs to
type RequestType string

const (
	TypePurchaseRequest           RequestType = "purchase-request"
	TypeCashAdvance               RequestType = "cash-advance"
	TypeCashAdvanceLiquidation    RequestType = "cash-advance-liquidation"
	TypeCAReceipt                 RequestType = "ca-receipt"
	TypeReimbursement             RequestType = "reimbursement"
	TypePaymentRequest            RequestType = "payment-request"
	TypeMaintenanceRepair         RequestType = "maintenance-repair"
	TypeOvertimeApproval          RequestType = "overtime-approval"
	TypeLeaveApplication          RequestType = "leave-application"
	TypeRevolvingFund             RequestType = "revolving-fund"
	TypeInterbranchTransfer       RequestType = "interbranch-transfer"
	TypeTransmittal               RequestType = "transmittal"
	TypeCreditCardAcknowledgement RequestType = "credit-card-acknowledgement"
)

type typeInfo struct {
	prefix string
	label  string
}

var requestTypes = map[RequestType]typeInfo{
	TypePurchaseRequest:           {"PRF", "Purchase Request"},
	TypeCashAdvance:               {"CAF", "Cash Advance"},
	TypeCashAdvanceLiquidation:    {"LIQ", "Cash Advance Liquidation"},
	TypeCAReceipt:                 {"CAR", "CA Receipt"},
	TypeReimbursement:             {"RMB", "Reimbursement"},
	TypePaymentRequest:            {"PAY", "Payment Request"},
	TypeMaintenanceRepair:         {"MRF", "Maintenance/Repair"},
	TypeOvertimeApproval:          {"OTA", "Overtime Approval"},
	TypeLeaveApplication:          {"LVA", "Leave Application"},
	TypeRevolvingFund:             {"RFR", "Revolving Fund Replenishment"},
	TypeInterbranchTransfer:       {"IBT", "Interbranch Transfer"},
	TypeTransmittal:               {"TRN", "Transmittal"},
	TypeCreditCardAcknowledgement: {"CCA", "Credit Card Acknowledgement"},
}

// AllRequestTypes returns every request type in display order
func AllRequestTypes() []RequestType {
	return []RequestType{
		TypePurchaseRequest,
		TypeCashAdvance,
		TypeCashAdvanceLiquidation,
		TypeCAReceipt,
		TypeReimbursement,
		TypePaymentRequest,
		TypeMaintenanceRepair,
		TypeOvertimeApproval,
		TypeLeaveApplication,
		TypeRevolvingFund,
		TypeInterbranchTransfer,
		TypeTransmittal,
		TypeCreditCardAcknowledgement,
	}
}

// ParseRequestType resolves a URL slug into a request type
func ParseRequestType(slug string) (RequestType, error) {
	t := RequestType(slug)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown request type: %q", slug)
	}
	return t, nil
}

// String returns the slug of the request type
func (t RequestType) String() string {
	return string(t)
}

// IsValid returns true if the request type is known
func (t RequestType) IsValid() bool {
	_, ok := requestTypes[t]
	return ok
}

// Prefix returns the reference code prefix, e.g. PRF
func (t RequestType) Prefix() string {
	return requestTypes[t].prefix
}

// Label returns the human readable form name
func (t RequestType) Label() string {
	return requestTypes[t].label
}
