package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/branch-forms/internal/application/projection"
	"github.com/garyjia/branch-forms/internal/application/service"
	"github.com/garyjia/branch-forms/internal/application/workflow"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
	"github.com/garyjia/branch-forms/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthCheck reports whether the service's dependencies are usable
type HealthCheck func(ctx context.Context) (healthy bool, detail interface{})

// Handlers contains all HTTP request handlers
type Handlers struct {
	requests service.RequestService
	profiles service.ProfileService
	reports  service.ReportService
	health   HealthCheck
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requests service.RequestService,
	profiles service.ProfileService,
	reports service.ReportService,
	health HealthCheck,
	logger Logger,
) *Handlers {
	return &Handlers{
		requests: requests,
		profiles: profiles,
		reports:  reports,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Field   string      `json:"field,omitempty"`
	Refresh bool        `json:"refresh,omitempty"`
	Retry   bool        `json:"retry,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Detail    interface{} `json:"detail,omitempty"`
}

// SubmitRequest is the body of POST /forms/:type
type SubmitRequest struct {
	Payload map[string]interface{} `json:"payload" binding:"required"`
}

// TransitionRequest is the body of POST /forms/:type/:id/transitions
type TransitionRequest struct {
	To     string            `json:"to" binding:"required"`
	Note   string            `json:"note"`
	Fields map[string]string `json:"fields"`
}

// ListRequest holds the query parameters of GET /forms/:type
type ListRequest struct {
	View  string `form:"view"`
	Q     string `form:"q"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, detail := true, interface{}(nil)
	if h.health != nil {
		healthy, detail = h.health(c.Request.Context())
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Detail:    detail,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{Success: healthy, Data: resp})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: actorFrom(c)})
}

// ListForms handles GET /api/v1/forms
func (h *Handlers) ListForms(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.requests.Forms()})
}

// Submit handles POST /api/v1/forms/:type
func (h *Handlers) Submit(c *gin.Context) {
	t, ok := h.requestType(c, c.Param("type"))
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindMessage(err, "payload object is required"))
		return
	}

	detail, err := h.requests.Submit(c.Request.Context(), actorFrom(c), t, req.Payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: detail})
}

// List handles GET /api/v1/forms/:type
func (h *Handlers) List(c *gin.Context) {
	t, ok := h.requestType(c, c.Param("type"))
	if !ok {
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	view, err := projection.ParseView(req.View)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.requests.List(c.Request.Context(), actorFrom(c), t, projection.Query{
		View:   view,
		Search: utils.SanitizeString(req.Q),
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: page})
}

// Get handles GET /api/v1/forms/:type/:id
func (h *Handlers) Get(c *gin.Context) {
	t, ok := h.requestType(c, c.Param("type"))
	if !ok {
		return
	}

	detail, err := h.requests.Get(c.Request.Context(), actorFrom(c), t, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// Transition handles POST /api/v1/forms/:type/:id/transitions
func (h *Handlers) Transition(c *gin.Context) {
	t, ok := h.requestType(c, c.Param("type"))
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindMessage(err, "to is required and fields must map names to strings"))
		return
	}
	to := domainwf.Status(strings.ToUpper(strings.TrimSpace(req.To)))
	if !to.IsValid() {
		badRequest(c, fmt.Sprintf("unknown status: %q", req.To))
		return
	}

	detail, err := h.requests.Transition(c.Request.Context(), actorFrom(c), t, c.Param("id"), to, workflow.TransitionInput{
		Note:   req.Note,
		Fields: req.Fields,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// Report handles GET /api/v1/reports/:file where file is <type>.xlsx
func (h *Handlers) Report(c *gin.Context) {
	file := c.Param("file")
	slug, found := strings.CutSuffix(file, ".xlsx")
	if !found {
		c.JSON(http.StatusNotFound, Response{Error: "reports are available as .xlsx"})
		return
	}
	t, ok := h.requestType(c, slug)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Export(c.Request.Context(), actorFrom(c), t, &buf); err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.xlsx", t, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.requests.Dashboard()})
}

func (h *Handlers) requestType(c *gin.Context, slug string) (entity.RequestType, bool) {
	t, err := entity.ParseRequestType(slug)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Error: err.Error()})
		return "", false
	}
	return t, true
}
