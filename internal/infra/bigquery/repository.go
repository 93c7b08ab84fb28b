package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// Table names in the dataset.
const (
	applicationsTable = "loan_applications"
	documentsTable    = "document_data"
	metricsTable      = "financial_metrics"
	reportsTable      = "analysis_reports"
	productsTable     = "loan_products"
)

// Dataset locates the tables of one deployment.
type Dataset struct {
	Project string
	Name    string
}

// Table returns the fully qualified, backtick-quoted table name.
func (d Dataset) Table(name string) string {
	return "`" + d.Project + "." + d.Name + "." + name + "`"
}

// Repository is the BigQuery implementation of store.Repository. It holds a
// shared client to avoid creating a new connection for each operation.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewRepository creates a repository for the given dataset.
func NewRepository(ctx context.Context, ds Dataset) (*Repository, error) {
	if ds.Project == "" || ds.Name == "" {
		return nil, fmt.Errorf("NewRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, ds.Project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, ds: ds}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// runDML runs a DML statement, waits for it and returns the affected row
// count. DML is used instead of streaming inserts so rows can be updated
// right away.
func runDML(ctx context.Context, q *bigquery.Query, op string) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("%s: job error: %w", op, err)
	}
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// readAll runs a query and decodes every row into a fresh T.
func readAll[T any](ctx context.Context, q *bigquery.Query, op string) ([]*T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var rows []*T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iterating: %w", op, err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// readOne returns the first row or domain.ErrNotFound.
func readOne[T any](ctx context.Context, q *bigquery.Query, op string) (*T, error) {
	rows, err := readAll[T](ctx, q, op)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return rows[0], nil
}

// CreateApplication implements store.ApplicationStore.
func (r *Repository) CreateApplication(ctx context.Context, app *domain.LoanApplication) error {
	return InsertApplicationWithClient(ctx, r.client, r.ds, applicationToRow(app))
}

// GetApplication implements store.ApplicationStore.
func (r *Repository) GetApplication(ctx context.Context, id string) (*domain.LoanApplication, error) {
	row, err := GetApplicationWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListApplications implements store.ApplicationStore.
func (r *Repository) ListApplications(ctx context.Context, userID string) ([]*domain.LoanApplication, error) {
	rows, err := ListApplicationsWithClient(ctx, r.client, r.ds, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.LoanApplication, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// UpdateApplicationStatus implements store.ApplicationStore.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	return UpdateApplicationStatusWithClient(ctx, r.client, r.ds, id, status)
}

// SaveDocument implements store.DocumentStore.
func (r *Repository) SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error {
	row, err := documentToRow(rec)
	if err != nil {
		return fmt.Errorf("SaveDocument: %w", err)
	}
	return UpsertDocumentWithClient(ctx, r.client, r.ds, row)
}

// ListDocuments implements store.DocumentStore.
func (r *Repository) ListDocuments(ctx context.Context, applicationID string) ([]*domain.DocumentRecord, error) {
	rows, err := ListDocumentsWithClient(ctx, r.client, r.ds, applicationID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.DocumentRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListDocuments: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// SaveMetrics implements store.MetricsStore.
func (r *Repository) SaveMetrics(ctx context.Context, rec *domain.MetricsRecord) error {
	row, err := metricsToRow(rec)
	if err != nil {
		return fmt.Errorf("SaveMetrics: %w", err)
	}
	return UpsertMetricsWithClient(ctx, r.client, r.ds, row)
}

// GetMetrics implements store.MetricsStore.
func (r *Repository) GetMetrics(ctx context.Context, applicationID string) (*domain.MetricsRecord, error) {
	row, err := GetMetricsWithClient(ctx, r.client, r.ds, applicationID)
	if err != nil {
		return nil, err
	}
	rec, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetMetrics: %w", err)
	}
	return rec, nil
}

// SaveReport implements store.ReportStore.
func (r *Repository) SaveReport(ctx context.Context, rep *domain.AnalysisReport) error {
	row, err := reportToRow(rep)
	if err != nil {
		return fmt.Errorf("SaveReport: %w", err)
	}
	return UpsertReportWithClient(ctx, r.client, r.ds, row)
}

// GetReport implements store.ReportStore.
func (r *Repository) GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	row, err := GetReportWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return nil, err
	}
	rep, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetReport: %w", err)
	}
	return rep, nil
}

// ListReports implements store.ReportStore.
func (r *Repository) ListReports(ctx context.Context, applicationID string) ([]*domain.AnalysisReport, error) {
	rows, err := ListReportsWithClient(ctx, r.client, r.ds, applicationID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.AnalysisReport, 0, len(rows))
	for _, row := range rows {
		rep, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListReports: %w", err)
		}
		out = append(out, rep)
	}
	return out, nil
}

// ListProducts implements store.ProductStore.
func (r *Repository) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	rows, err := ListProductsWithClient(ctx, r.client, r.ds)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LoanProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Ensure Repository implements store.Repository.
var _ store.Repository = (*Repository)(nil)
