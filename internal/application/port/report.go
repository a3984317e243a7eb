package port

import (
	"context"
	"io"

	"github.com/garyjia/branch-forms/internal/domain/entity"
)

// ReportWriter renders a historical report for one request type
type ReportWriter interface {
	WriteReport(ctx context.Context, w io.Writer, t entity.RequestType, records []*entity.RequestRecord) error
}
