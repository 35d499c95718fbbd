package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/middleware"
	"github.com/nijaru/swing-analysis/models"
	"github.com/nijaru/swing-analysis/services/analysis"
	"github.com/nijaru/swing-analysis/validation"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const AnalysisIDHeader = "X-Analysis-ID"

type AnalysisHandler struct {
	service      *analysis.Service
	validator    *validation.Validator
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

func NewAnalysisHandler(
	service *analysis.Service,
	validator *validation.Validator,
	m *metrics.Metrics,
	maxBodyBytes int64,
) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		metrics:      m,
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleAnalyze handles POST /analyze
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "AnalysisHandler.HandleAnalyze"

	if err := h.validator.CheckHTTPRequest(r, validation.RequestValidationOpts{
		MaxContentLength: h.maxBodyBytes,
		AllowedMethods:   []string{http.MethodPost},
		RequireJSON:      true,
	}); err != nil {
		respondError(w, r, h.metrics, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if pkgerrors.As(err, &maxErr) {
			respondError(w, r, h.metrics, errors.InvalidInput(op, err, "Request body too large"))
			return
		}
		respondError(w, r, h.metrics, errors.InvalidInput(op, err, "Failed to read request body"))
		return
	}

	input, err := h.validator.ValidateRequest(body)
	if err != nil {
		respondError(w, r, h.metrics, err)
		return
	}

	record, err := h.service.Analyze(r.Context(), input)
	if err != nil {
		respondError(w, r, h.metrics, err)
		return
	}

	middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"analysis_id": record.ID,
		"video_url":   input.VideoURL,
	}).Info("Analysis returned")

	w.Header().Set(AnalysisIDHeader, record.ID)
	respondJSON(w, http.StatusOK, record.Response)
}

// HandleGet handles GET /analyses/{id}
func (h *AnalysisHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.metrics, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// HandleList handles GET /analyses?limit=N
func (h *AnalysisHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "AnalysisHandler.HandleList"

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, h.metrics, errors.InvalidInput(op, err, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, h.metrics, err)
		return
	}

	respondJSON(w, http.StatusOK, models.AnalysisList{Analyses: records})
}
