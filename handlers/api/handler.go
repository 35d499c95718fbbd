package api

import (
	"net/http"

	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/middleware"
	"github.com/nijaru/swing-analysis/utils"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string              `json:"error"`
	Details   []errors.FieldError `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	utils.WriteJSON(w, code, payload)
}

func respondError(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, err error) {
	code := http.StatusInternalServerError
	resp := ErrorResponse{
		Error:     "Internal server error",
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}

	if appErr, ok := errors.AsAppError(err); ok && appErr.Code != 0 {
		code = appErr.Code
		resp.Error = appErr.Message
		resp.Details = appErr.Details
	}

	for _, detail := range resp.Details {
		m.ObserveValidationFailure(detail.Field)
	}

	entry := middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"error":  err,
		"status": code,
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Debug("Request rejected")
	}

	respondJSON(w, code, resp)
}
