package performancehandler

import (
	"errors"
	"net/http"

	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/performance"
	"appraisal/internal/platform/requestctx"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

// writeError maps engine errors onto the response envelope.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var validation *evaluation.ValidationError
	var config *evaluation.ConfigError
	var workflow *evaluation.WorkflowError
	switch {
	case errors.As(err, &validation):
		code, message := "validation_error", "payload validation failed"
		if errors.Is(err, performance.ErrMalformedImport) {
			code, message = "malformed_import", performance.ErrMalformedImport.Error()
		}
		api.FailWithDetails(w, http.StatusBadRequest, code, message, map[string]any{"fields": validation.Issues}, reqID)
	case errors.Is(err, performance.ErrMalformedImport):
		api.Fail(w, http.StatusBadRequest, "malformed_import", err.Error(), reqID)
	case errors.As(err, &config):
		api.Fail(w, http.StatusConflict, "configuration_error", config.Error(), reqID)
	case errors.As(err, &workflow):
		api.FailWithDetails(w, http.StatusConflict, "workflow_state", workflow.Error(),
			map[string]any{"status": workflow.Status, "role": workflow.Role}, reqID)
	case errors.Is(err, performance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.Is(err, performance.ErrNoEligible):
		api.Fail(w, http.StatusBadRequest, "no_eligible_employees", err.Error(), reqID)
	case errors.Is(err, performance.ErrAlreadyAssigned), errors.Is(err, performance.ErrNotLaunched):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), reqID)
	case errors.Is(err, performance.ErrNotParticipant):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	default:
		requestctx.Logger(r.Context()).Error(op+" failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "operation_failed", "operation failed, retry", reqID)
	}
}
