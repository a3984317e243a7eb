package entity

// Field names attached to transitions
const (
	FieldDeclinedReason = "declined_reason"

	// Payment request completion
	FieldGLCode      = "gl_code"
	FieldORNo        = "or_no"
	FieldGLAmount    = "gl_amount"
	FieldCheckNumber = "check_number"

	// Maintenance/repair accomplishment
	FieldPerformedBy   = "performed_by"
	FieldRemarks       = "remarks"
	FieldDateCompleted = "date_completed"
)

// DateLayout is the calendar date format used for date fields
const DateLayout = "2006-01-02"
