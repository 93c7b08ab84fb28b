package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// ReportRepository is the persistence a report job reads and writes.
type ReportRepository interface {
	analysis.InputSource
	store.ReportStore
	UpdateApplicationStatus(ctx context.Context, id, status string) error
}

// ReportPublisher copies a finished report to an external workspace and
// returns its URL.
type ReportPublisher interface {
	PublishReport(ctx context.Context, app *domain.LoanApplication, report *domain.AnalysisReport) (string, error)
}

// ReportHandler runs report jobs.
type ReportHandler struct {
	Repo      ReportRepository
	Analyzer  *analysis.Analyzer
	Model     string
	Publisher ReportPublisher // optional
}

// Handle implements JobHandler.
func (h *ReportHandler) Handle(ctx context.Context, job *ReportJob) error {
	log := logger.FromContext(ctx)

	in, err := analysis.LoadInput(ctx, h.Repo, job.ApplicationID)
	if err != nil {
		return fmt.Errorf("ReportHandler: %w", err)
	}

	report := &domain.AnalysisReport{
		ID:            job.ReportID,
		ApplicationID: job.ApplicationID,
		Kind:          job.Kind,
		Model:         h.Model,
		CreatedAt:     time.Now().UTC(),
	}

	switch job.Kind {
	case domain.ReportStructured:
		result, raw, err := h.Analyzer.Analyze(ctx, in)
		if err != nil {
			return fmt.Errorf("ReportHandler: %w", err)
		}
		report.Result = result
		report.RawResponse = raw
	case domain.ReportMarkdown, "":
		md, sections, err := h.Analyzer.Report(ctx, in)
		if err != nil {
			return fmt.Errorf("ReportHandler: %w", err)
		}
		report.Kind = domain.ReportMarkdown
		report.Markdown = md
		report.Sections = sections
		report.RawResponse = md
	default:
		return fmt.Errorf("ReportHandler: unknown report kind %q: %w", job.Kind, domain.ErrMalformedInput)
	}

	if h.Publisher != nil {
		url, err := h.Publisher.PublishReport(ctx, &in.Application, report)
		if err != nil {
			// The report is still saved; publishing is best effort.
			log.Warn().Err(err).Str("report_id", report.ID).Msg("failed to publish report")
		} else {
			report.PublishedURL = url
		}
	}

	if err := h.Repo.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("ReportHandler: save report: %w", err)
	}
	if err := h.Repo.UpdateApplicationStatus(ctx, job.ApplicationID, domain.StatusAnalyzed); err != nil {
		return fmt.Errorf("ReportHandler: update status: %w", err)
	}

	log.Info().Str("report_id", report.ID).Str("kind", report.Kind).Msg("report generated")
	return nil
}
