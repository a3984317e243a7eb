package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/branch-forms/internal/application/port"
	"github.com/garyjia/branch-forms/internal/application/projection"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// ReportService exports historical reports
type ReportService interface {
	// Export writes every record of the type visible to the actor, newest first
	Export(ctx context.Context, actor entity.ActorContext, t entity.RequestType, w io.Writer) error
}

type reportServiceImpl struct {
	gate    *workflow.Gate
	records port.RecordRepository
	writer  port.ReportWriter
	logger  Logger
}

// NewReportService creates a new ReportService
func NewReportService(gate *workflow.Gate, records port.RecordRepository, writer port.ReportWriter, logger Logger) ReportService {
	return &reportServiceImpl{gate: gate, records: records, writer: writer, logger: logger}
}

// CanExport returns true for roles that run historical reports
func CanExport(role domainwf.Role) bool {
	return role == domainwf.RoleAccounting || role == domainwf.RoleApprove
}

func (s *reportServiceImpl) Export(ctx context.Context, actor entity.ActorContext, t entity.RequestType, w io.Writer) error {
	if !actor.IsAuthenticated() || !CanExport(actor.Role) {
		return workflow.NewLifecycleError(workflow.KindUnauthorized, "reports are limited to accounting and approvers")
	}

	all, err := s.records.List(ctx, port.RecordFilter{Type: t})
	if err != nil {
		return &workflow.LifecycleError{Kind: workflow.KindPersistenceFailed, Msg: "list records", Err: err}
	}

	visible := make([]*entity.RequestRecord, 0, len(all))
	for _, rec := range all {
		if s.gate.CanView(actor, rec) {
			visible = append(visible, rec)
		}
	}
	projection.SortNewestFirst(visible)

	if err := s.writer.WriteReport(ctx, w, t, visible); err != nil {
		s.logger.Error("Failed to write report", "request_type", t, "error", err)
		return fmt.Errorf("failed to write %s report: %w", t, err)
	}

	s.logger.Info("Report exported", "request_type", t, "rows", len(visible), "user_id", actor.UserID)
	return nil
}
