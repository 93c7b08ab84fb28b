// Package store defines the persistence contracts of the loan assessment
// service. Backends live in store/inmemory, infra/postgres and
// infra/bigquery.
package store

import (
	"context"
	"sort"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// ApplicationStore persists loan_applications.
type ApplicationStore interface {
	// CreateApplication inserts a new application. ID and timestamps must be set.
	CreateApplication(ctx context.Context, app *domain.LoanApplication) error

	// GetApplication returns domain.ErrNotFound when the id is unknown.
	GetApplication(ctx context.Context, id string) (*domain.LoanApplication, error)

	// ListApplications returns a user's applications, newest first.
	ListApplications(ctx context.Context, userID string) ([]*domain.LoanApplication, error)

	// UpdateApplicationStatus sets the status and bumps updated_at.
	UpdateApplicationStatus(ctx context.Context, id, status string) error
}

// DocumentStore persists document_data rows, one per application and category.
type DocumentStore interface {
	// SaveDocument inserts or replaces the row for rec's application and category.
	SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error

	// ListDocuments returns an application's documents ordered by category.
	ListDocuments(ctx context.Context, applicationID string) ([]*domain.DocumentRecord, error)
}

// MetricsStore persists financial_metrics, one row per application.
type MetricsStore interface {
	// SaveMetrics replaces the application's metrics.
	SaveMetrics(ctx context.Context, rec *domain.MetricsRecord) error

	// GetMetrics returns domain.ErrNotFound when nothing was computed yet.
	GetMetrics(ctx context.Context, applicationID string) (*domain.MetricsRecord, error)
}

// ReportStore persists analysis_reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report *domain.AnalysisReport) error

	// GetReport returns domain.ErrNotFound when the id is unknown.
	GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error)

	// ListReports returns an application's reports, newest first.
	ListReports(ctx context.Context, applicationID string) ([]*domain.AnalysisReport, error)
}

// ProductStore reads the loan_products catalogue.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]domain.LoanProduct, error)
}

// Repository is the full persistence layer.
type Repository interface {
	ApplicationStore
	DocumentStore
	MetricsStore
	ReportStore
	ProductStore

	Close() error
}

// Payloads keys saved documents by category, the shape the metrics
// aggregator takes.
func Payloads(docs []*domain.DocumentRecord) map[domain.DocumentCategory]domain.DocumentPayload {
	out := make(map[domain.DocumentCategory]domain.DocumentPayload, len(docs))
	for _, d := range docs {
		out[d.Category] = d.Payload
	}
	return out
}

// SortDocuments orders documents by category name.
func SortDocuments(docs []*domain.DocumentRecord) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Category < docs[j].Category })
}
