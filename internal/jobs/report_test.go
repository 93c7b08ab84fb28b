package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/jobs"
	"github.com/dvloznov/credit-assessor/internal/store/inmemory"
)

type mockGateway struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGateway) Generate(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFunc(ctx, prompt)
}

type mockPublisher struct {
	PublishReportFunc func(ctx context.Context, app *domain.LoanApplication, report *domain.AnalysisReport) (string, error)
}

func (m *mockPublisher) PublishReport(ctx context.Context, app *domain.LoanApplication, report *domain.AnalysisReport) (string, error) {
	return m.PublishReportFunc(ctx, app, report)
}

const markdownReply = "## Executive Summary\nSolid cash flow.\n\n## Risk Assessment\nLow leverage.\n"

func seededRepo(t *testing.T) *inmemory.Store {
	t.Helper()
	repo := inmemory.NewStore()
	err := repo.CreateApplication(context.Background(), &domain.LoanApplication{
		ID:        "a1",
		UserID:    "u1",
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateApplication() error = %v", err)
	}
	return repo
}

func TestReportHandler_Markdown(t *testing.T) {
	repo := seededRepo(t)
	gw := &mockGateway{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "```markdown\n" + markdownReply + "```", nil
	}}
	pub := &mockPublisher{PublishReportFunc: func(ctx context.Context, app *domain.LoanApplication, report *domain.AnalysisReport) (string, error) {
		if app.ID != "a1" || len(report.Sections) != 2 {
			t.Errorf("publish got app=%s sections=%d", app.ID, len(report.Sections))
		}
		return "https://notion.so/report-r1", nil
	}}
	h := &jobs.ReportHandler{Repo: repo, Analyzer: analysis.NewAnalyzer(gw, 0), Model: "test-model", Publisher: pub}

	err := h.Handle(context.Background(), &jobs.ReportJob{ApplicationID: "a1", ReportID: "r1", Kind: domain.ReportMarkdown})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	rep, err := repo.GetReport(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if rep.Model != "test-model" || rep.PublishedURL != "https://notion.so/report-r1" {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Sections) != 2 || rep.Sections[0].Title != "Executive Summary" {
		t.Errorf("Sections = %+v", rep.Sections)
	}
	app, _ := repo.GetApplication(context.Background(), "a1")
	if app.Status != domain.StatusAnalyzed {
		t.Errorf("Status = %q, want analyzed", app.Status)
	}
}

func TestReportHandler_Structured(t *testing.T) {
	repo := seededRepo(t)
	gw := &mockGateway{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return `{"overall_score":72,"score_breakdown":{"cash_flow":80},"key_factors":{"positive":["steady revenue"],"negative":[]},"recommendations":["extend term"],"approval_probability":0.7}`, nil
	}}
	pub := &mockPublisher{PublishReportFunc: func(ctx context.Context, app *domain.LoanApplication, report *domain.AnalysisReport) (string, error) {
		return "", errors.New("notion down")
	}}
	h := &jobs.ReportHandler{Repo: repo, Analyzer: analysis.NewAnalyzer(gw, 0), Publisher: pub}

	if err := h.Handle(context.Background(), &jobs.ReportJob{ApplicationID: "a1", ReportID: "r2", Kind: domain.ReportStructured}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	rep, err := repo.GetReport(context.Background(), "r2")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if rep.Result == nil || rep.Result.OverallScore != 72 || rep.PublishedURL != "" {
		t.Errorf("report = %+v", rep)
	}
}

func TestReportHandler_Errors(t *testing.T) {
	failing := &mockGateway{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "", domain.ErrExternalService
	}}

	tests := []struct {
		name    string
		job     *jobs.ReportJob
		wantErr error
	}{
		{"unknown application", &jobs.ReportJob{ApplicationID: "nope", ReportID: "r", Kind: domain.ReportMarkdown}, domain.ErrNotFound},
		{"model failure", &jobs.ReportJob{ApplicationID: "a1", ReportID: "r", Kind: domain.ReportMarkdown}, domain.ErrExternalService},
		{"unknown kind", &jobs.ReportJob{ApplicationID: "a1", ReportID: "r", Kind: "pdf"}, domain.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededRepo(t)
			h := &jobs.ReportHandler{Repo: repo, Analyzer: analysis.NewAnalyzer(failing, 0)}
			err := h.Handle(context.Background(), tt.job)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Handle() error = %v, want %v", err, tt.wantErr)
			}
			if jobs.Retryable(err) != errors.Is(tt.wantErr, domain.ErrExternalService) {
				t.Errorf("Retryable(%v) mismatch", err)
			}
			if _, err := repo.GetReport(context.Background(), "r"); !errors.Is(err, domain.ErrNotFound) {
				t.Error("report saved for a failed job")
			}
		})
	}
}
