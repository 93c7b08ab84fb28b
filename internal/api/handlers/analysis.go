package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/jobs"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// AnalysisRepository is the persistence the analysis endpoints need.
type AnalysisRepository interface {
	analysis.InputSource
	store.ApplicationStore
	store.ReportStore
}

// AnalysisHandler handles AI analysis and report endpoints.
type AnalysisHandler struct {
	repo      AnalysisRepository
	analyzer  *analysis.Analyzer
	model     string
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(repo AnalysisRepository, analyzer *analysis.Analyzer, model string, publisher jobs.Publisher, log zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		repo:      repo,
		analyzer:  analyzer,
		model:     model,
		publisher: publisher,
		log:       log,
	}
}

// Analyze handles POST /api/applications/{id}/analysis
// It runs the structured analysis synchronously and saves it as a report.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := ownedApplication(ctx, h.repo, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	in, err := analysis.LoadInput(ctx, h.repo, app.ID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	result, raw, err := h.analyzer.Analyze(ctx, in)
	if err != nil {
		h.log.Error().Err(err).Str("application_id", app.ID).Msg("Analysis failed")
		middleware.WriteDomainError(w, err)
		return
	}

	report := &domain.AnalysisReport{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		Kind:          domain.ReportStructured,
		Model:         h.model,
		Result:        result,
		RawResponse:   raw,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.repo.SaveReport(ctx, report); err != nil {
		h.log.Error().Err(err).Str("application_id", app.ID).Msg("Failed to save analysis")
		middleware.WriteDomainError(w, err)
		return
	}
	if err := h.repo.UpdateApplicationStatus(ctx, app.ID, domain.StatusAnalyzed); err != nil {
		h.log.Warn().Err(err).Str("application_id", app.ID).Msg("Failed to update application status")
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// EnqueueReport handles POST /api/applications/{id}/reports
// The optional body {"kind": "markdown"|"structured"} picks the report kind.
func (h *AnalysisHandler) EnqueueReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := ownedApplication(ctx, h.repo, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteDomainError(w, err)
		return
	}
	switch req.Kind {
	case "":
		req.Kind = domain.ReportMarkdown
	case domain.ReportMarkdown, domain.ReportStructured:
	default:
		middleware.WriteDomainError(w, fmt.Errorf("unknown report kind %q: %w", req.Kind, domain.ErrMalformedInput))
		return
	}

	job := &jobs.ReportJob{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Kind:          req.Kind,
		ReportID:      uuid.New().String(),
		MaxRetries:    jobs.MaxRetries,
	}
	if err := h.publisher.PublishReport(ctx, job); err != nil {
		h.log.Error().Err(err).Str("application_id", app.ID).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("application_id", app.ID).Msg("Report job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":    job.JobID,
		"report_id": job.ReportID,
		"status":    string(job.Status),
	})
}

// ListReports handles GET /api/applications/{id}/reports
func (h *AnalysisHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := ownedApplication(ctx, h.repo, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	reports, err := h.repo.ListReports(ctx, app.ID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if reports == nil {
		reports = []*domain.AnalysisReport{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// ownedReport loads a report and checks ownership through its application.
func (h *AnalysisHandler) ownedReport(r *http.Request) (*domain.AnalysisReport, error) {
	ctx := r.Context()
	report, err := h.repo.GetReport(ctx, mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if _, err := ownedApplication(ctx, h.repo, report.ApplicationID); err != nil {
		return nil, err
	}
	return report, nil
}

// GetReport handles GET /api/reports/{id}
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.ownedReport(r)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetReportHTML handles GET /api/reports/{id}/html
func (h *AnalysisHandler) GetReportHTML(w http.ResponseWriter, r *http.Request) {
	report, err := h.ownedReport(r)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if report.Markdown == "" {
		middleware.WriteError(w, http.StatusNotFound, "Report has no markdown body")
		return
	}

	body, err := analysis.RenderReportHTML(report.Markdown)
	if err != nil {
		h.log.Error().Err(err).Str("report_id", report.ID).Msg("Failed to render report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Credit report</title></head><body>\n")
	io.WriteString(w, body)
	io.WriteString(w, "</body></html>\n")
}
