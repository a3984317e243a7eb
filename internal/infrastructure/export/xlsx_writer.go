package export

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	recordsSheet = "Records"
	auditSheet   = "Audit Trail"
	timeLayout   = "2006-01-02 15:04"
)

// attachedFieldOrder is the column order for fields captured on transitions
var attachedFieldOrder = []string{
	entity.FieldGLCode,
	entity.FieldORNo,
	entity.FieldGLAmount,
	entity.FieldCheckNumber,
	entity.FieldPerformedBy,
	entity.FieldRemarks,
	entity.FieldDateCompleted,
}

var fieldHeaders = map[string]string{
	entity.FieldGLCode:        "GL Code",
	entity.FieldORNo:          "OR No.",
	entity.FieldGLAmount:      "GL Amount",
	entity.FieldCheckNumber:   "Check No.",
	entity.FieldPerformedBy:   "Performed By",
	entity.FieldRemarks:       "Remarks",
	entity.FieldDateCompleted: "Date Completed",
}

var baseHeaders = []string{
	"Code", "Status", "Submitted", "Employee ID", "Requester",
	"Branch", "Department", "Last Action", "Acted By", "Acted At", "Note",
}

// XLSXWriter renders historical reports as Excel workbooks
type XLSXWriter struct {
	companyName string
	location    *timeLocation
	logger      *zap.Logger
}

// NewXLSXWriter creates a new report writer. An empty timezone keeps UTC.
func NewXLSXWriter(companyName, timezone string, logger *zap.Logger) (*XLSXWriter, error) {
	loc, err := loadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &XLSXWriter{
		companyName: companyName,
		location:    loc,
		logger:      logger,
	}, nil
}

// WriteReport implements port.ReportWriter.
// Records are written in the order given; the caller sorts them.
func (x *XLSXWriter) WriteReport(ctx context.Context, w io.Writer, t entity.RequestType, records []*entity.RequestRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(auditSheet); err != nil {
		return fmt.Errorf("failed to create audit sheet: %w", err)
	}

	fields := usedFields(records)

	title := fmt.Sprintf("%s Report", t.Label())
	if x.companyName != "" {
		title = x.companyName + " - " + title
	}
	x.setCell(f, recordsSheet, "A1", title)

	headers := append([]string{}, baseHeaders...)
	for _, name := range fields {
		headers = append(headers, fieldHeaders[name])
	}
	if err := x.writeRow(f, recordsSheet, 3, headers); err != nil {
		return err
	}

	total := decimal.Zero
	hasAmount := false
	row := 4
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		values := []interface{}{
			rec.Code,
			string(rec.Status),
			x.location.format(rec.SubmittedAt),
			rec.Requester.EmployeeID,
			rec.Requester.Name,
			rec.Requester.Branch,
			rec.Requester.Department,
		}
		if last := rec.LastEntry(); last != nil {
			values = append(values,
				fmt.Sprintf("%s -> %s", last.FromStatus, last.ToStatus),
				last.ActorName,
				x.location.format(last.ActedAt),
				last.Note,
			)
		} else {
			values = append(values, "", "", "", "")
		}

		attached := latestFields(rec)
		for _, name := range fields {
			v := attached[name]
			if name == entity.FieldGLAmount && v != "" {
				amount, err := decimal.NewFromString(v)
				if err == nil {
					total = total.Add(amount)
					hasAmount = true
					values = append(values, amount.InexactFloat64())
					continue
				}
			}
			values = append(values, v)
		}

		if err := x.writeRow(f, recordsSheet, row, values); err != nil {
			return err
		}
		row++
	}

	if hasAmount {
		col := len(baseHeaders) + indexOf(fields, entity.FieldGLAmount)
		labelCell, _ := excelize.CoordinatesToCellName(col, row)
		totalCell, _ := excelize.CoordinatesToCellName(col+1, row)
		x.setCell(f, recordsSheet, labelCell, "Total")
		x.setCell(f, recordsSheet, totalCell, total.StringFixed(2))
	}

	if err := x.writeAudit(f, records); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Report rendered",
		zap.String("request_type", string(t)),
		zap.Int("records", len(records)))
	return nil
}

func (x *XLSXWriter) writeAudit(f *excelize.File, records []*entity.RequestRecord) error {
	headers := []interface{}{"Code", "#", "From", "To", "Role", "Acted By", "Signature", "Acted At", "Note", "Fields"}
	if err := f.SetSheetRow(auditSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write audit header: %w", err)
	}

	row := 2
	for _, rec := range records {
		for _, e := range rec.Audit {
			values := []interface{}{
				rec.Code,
				e.Sequence,
				string(e.FromStatus),
				string(e.ToStatus),
				string(e.Role),
				e.ActorName,
				e.ActorSignatureRef,
				x.location.format(e.ActedAt),
				e.Note,
				formatFields(e.Fields),
			}
			if err := x.writeRow(f, auditSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (x *XLSXWriter) writeRow(f *excelize.File, sheet string, row int, values interface{}) error {
	var cells []interface{}
	switch v := values.(type) {
	case []interface{}:
		cells = v
	case []string:
		cells = make([]interface{}, len(v))
		for i, s := range v {
			cells[i] = s
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (x *XLSXWriter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		x.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// usedFields returns the attached field names present on any record, in column order
func usedFields(records []*entity.RequestRecord) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, e := range rec.Audit {
			for k := range e.Fields {
				seen[k] = true
			}
		}
	}

	var out []string
	for _, name := range attachedFieldOrder {
		if seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// latestFields merges attached fields across the trail, later entries winning
func latestFields(rec *entity.RequestRecord) map[string]string {
	out := make(map[string]string)
	for _, e := range rec.Audit {
		for k, v := range e.Fields {
			out[k] = v
		}
	}
	return out
}

func formatFields(fields map[string]string) string {
	var s string
	for _, name := range attachedFieldOrder {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if s != "" {
			s += "; "
		}
		s += name + "=" + v
	}
	return s
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

var _ port.ReportWriter = (*XLSXWriter)(nil)
