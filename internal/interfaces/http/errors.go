package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/branch-forms/internal/application/workflow"
)

// statusFor maps a lifecycle error kind onto an HTTP status
func statusFor(kind workflow.Kind) int {
	switch kind {
	case workflow.KindNoSuchTransition:
		return http.StatusConflict
	case workflow.KindUnauthorized:
		return http.StatusForbidden
	case workflow.KindMissingRequiredField, workflow.KindInvalidFieldValue:
		return http.StatusUnprocessableEntity
	case workflow.KindCodeAssignmentFailed, workflow.KindPersistenceFailed:
		return http.StatusServiceUnavailable
	case workflow.KindRecordNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the response envelope. Lifecycle errors carry their kind,
// the offending field, and whether the client should refresh or retry.
func (h *Handlers) writeError(c *gin.Context, err error) {
	le, ok := workflow.AsLifecycleError(err)
	if !ok {
		h.logger.Error("Unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal error"})
		return
	}

	status := statusFor(le.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "kind", le.Kind, "error", err)
	}

	c.JSON(status, Response{
		Error:   le.Error(),
		Code:    string(le.Kind),
		Field:   le.Field,
		Refresh: le.Refresh(),
		Retry:   le.Retryable(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Error: msg})
}

// bindMessage describes a JSON bind failure. Type mismatches name the offending field,
// anything else falls back to the shape the endpoint expects.
func bindMessage(err error, expected string) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return fmt.Sprintf("invalid request body: %s must be a %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return fmt.Sprintf("invalid request body: expected a %s, got %s", typeErr.Type, typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid request body: malformed JSON at offset %d", syntaxErr.Offset)
	}
	return "invalid request body: " + expected
}
