package workflow

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// collected is the validated input of one transition
type collected struct {
	note   string
	fields map[string]string
}

// collectInput trims and validates the note and attached fields of an edge.
// Fields the edge does not declare are dropped.
func collectInput(edge domainwf.Edge, note string, fields map[string]string, today time.Time) (*collected, error) {
	out := &collected{note: strings.TrimSpace(note)}

	if edge.RequiresNote && out.note == "" {
		return nil, fieldError(KindMissingRequiredField, entity.FieldDeclinedReason)
	}

	attached := edge.AttachedFields()
	if len(attached) == 0 {
		return out, nil
	}

	out.fields = make(map[string]string, len(attached))
	for _, name := range edge.RequiredFields {
		v := strings.TrimSpace(fields[name])
		if v == "" {
			return nil, fieldError(KindMissingRequiredField, name)
		}
		out.fields[name] = v
	}
	for _, name := range edge.OptionalFields {
		if v := strings.TrimSpace(fields[name]); v != "" {
			out.fields[name] = v
		}
	}

	if err := normalizeFields(out.fields, edge, today); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeFields applies the per-field formats
func normalizeFields(fields map[string]string, edge domainwf.Edge, today time.Time) error {
	if raw, ok := fields[entity.FieldGLAmount]; ok {
		amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil || amount.IsNegative() {
			return fieldError(KindInvalidFieldValue, entity.FieldGLAmount)
		}
		fields[entity.FieldGLAmount] = amount.StringFixed(2)
	}

	if declares(edge, entity.FieldDateCompleted) {
		raw, ok := fields[entity.FieldDateCompleted]
		if !ok {
			fields[entity.FieldDateCompleted] = today.Format(entity.DateLayout)
		} else if _, err := time.Parse(entity.DateLayout, raw); err != nil {
			return fieldError(KindInvalidFieldValue, entity.FieldDateCompleted)
		}
	}
	return nil
}

func declares(edge domainwf.Edge, name string) bool {
	for _, f := range edge.AttachedFields() {
		if f == name {
			return true
		}
	}
	return false
}
