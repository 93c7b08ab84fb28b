// Package postgres implements store.Repository on PostgreSQL (Supabase)
// using pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the PostgreSQL implementation of store.Repository.
type Repository struct {
	db    DB
	close func()
}

// NewRepository opens a connection pool for databaseURL.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("NewRepository: database URL is empty")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewRepository: ping: %w", err)
	}
	return &Repository{db: pool, close: pool.Close}, nil
}

// NewRepositoryWithDB wraps an existing connection.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Close releases the pool.
func (r *Repository) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}

const applicationColumns = `id, user_id, applicant_type, cic_group, company_name,
	loan_amount, loan_purpose, annual_revenue, time_in_business,
	baseline_score, baseline_reasoning, status, created_at, updated_at`

func scanApplication(row pgx.Row) (*domain.LoanApplication, error) {
	var (
		app      domain.LoanApplication
		cicGroup *int32
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.ApplicantType, &cicGroup, &app.CompanyName,
		&app.Form.LoanAmount, &app.Form.LoanPurpose, &app.Form.AnnualRevenue, &app.Form.TimeInBusiness,
		&app.Score.Score, &app.Score.Reasoning, &app.Status, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cicGroup != nil {
		g := int(*cicGroup)
		app.CICGroup = &g
	}
	return &app, nil
}

// CreateApplication implements store.ApplicationStore.
func (r *Repository) CreateApplication(ctx context.Context, app *domain.LoanApplication) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO loan_applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		app.ID, app.UserID, app.ApplicantType, app.CICGroup, app.CompanyName,
		app.Form.LoanAmount, app.Form.LoanPurpose, app.Form.AnnualRevenue, app.Form.TimeInBusiness,
		app.Score.Score, app.Score.Reasoning, app.Status, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateApplication: %w", err)
	}
	return nil
}

// GetApplication implements store.ApplicationStore.
func (r *Repository) GetApplication(ctx context.Context, id string) (*domain.LoanApplication, error) {
	app, err := scanApplication(r.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM loan_applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetApplication: %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetApplication: %w", err)
	}
	return app, nil
}

// ListApplications implements store.ApplicationStore.
func (r *Repository) ListApplications(ctx context.Context, userID string) ([]*domain.LoanApplication, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+applicationColumns+` FROM loan_applications WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListApplications: query: %w", err)
	}
	defer rows.Close()

	result := []*domain.LoanApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("ListApplications: scan: %w", err)
		}
		result = append(result, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListApplications: iterating: %w", err)
	}
	return result, nil
}

// UpdateApplicationStatus implements store.ApplicationStore.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loan_applications SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("UpdateApplicationStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateApplicationStatus: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SaveDocument implements store.DocumentStore with an upsert on
// (application_id, category).
func (r *Repository) SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("SaveDocument: marshal payload: %w", err)
	}
	validation, err := json.Marshal(rec.Validation)
	if err != nil {
		return fmt.Errorf("SaveDocument: marshal validation: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO document_data (id, application_id, category, schema_version, payload, validation, source_uri, file_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (application_id, category)
		DO UPDATE SET
			id = EXCLUDED.id,
			schema_version = EXCLUDED.schema_version,
			payload = EXCLUDED.payload,
			validation = EXCLUDED.validation,
			source_uri = EXCLUDED.source_uri,
			file_name = EXCLUDED.file_name,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.ApplicationID, string(rec.Category), rec.Payload.Version,
		payload, validation, rec.SourceURI, rec.FileName, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveDocument: %w", err)
	}
	return nil
}

// ListDocuments implements store.DocumentStore.
func (r *Repository) ListDocuments(ctx context.Context, applicationID string) ([]*domain.DocumentRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, application_id, category, payload, validation, source_uri, file_name, updated_at
		FROM document_data WHERE application_id = $1 ORDER BY category`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("ListDocuments: query: %w", err)
	}
	defer rows.Close()

	result := []*domain.DocumentRecord{}
	for rows.Next() {
		var (
			rec                 domain.DocumentRecord
			category            string
			payload, validation []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &category, &payload, &validation,
			&rec.SourceURI, &rec.FileName, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListDocuments: scan: %w", err)
		}
		rec.Category = domain.DocumentCategory(category)
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("ListDocuments: decode payload for %s: %w", category, err)
		}
		if err := json.Unmarshal(validation, &rec.Validation); err != nil {
			return nil, fmt.Errorf("ListDocuments: decode validation for %s: %w", category, err)
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDocuments: iterating: %w", err)
	}
	return result, nil
}

// SaveMetrics implements store.MetricsStore.
func (r *Repository) SaveMetrics(ctx context.Context, rec *domain.MetricsRecord) error {
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("SaveMetrics: marshal: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO financial_metrics (application_id, metrics, computed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id)
		DO UPDATE SET metrics = EXCLUDED.metrics, computed_at = EXCLUDED.computed_at`,
		rec.ApplicationID, metrics, rec.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveMetrics: %w", err)
	}
	return nil
}

// GetMetrics implements store.MetricsStore.
func (r *Repository) GetMetrics(ctx context.Context, applicationID string) (*domain.MetricsRecord, error) {
	var (
		rec     = domain.MetricsRecord{ApplicationID: applicationID}
		metrics []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT metrics, computed_at FROM financial_metrics WHERE application_id = $1`, applicationID,
	).Scan(&metrics, &rec.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetMetrics: %s: %w", applicationID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetMetrics: %w", err)
	}
	if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
		return nil, fmt.Errorf("GetMetrics: decode: %w", err)
	}
	return &rec, nil
}

const reportColumns = `id, application_id, kind, model, result, markdown, sections, raw_response, published_url, created_at`

func scanReport(row pgx.Row) (*domain.AnalysisReport, error) {
	var (
		rep              domain.AnalysisReport
		result, sections []byte
	)
	if err := row.Scan(&rep.ID, &rep.ApplicationID, &rep.Kind, &rep.Model, &result,
		&rep.Markdown, &sections, &rep.RawResponse, &rep.PublishedURL, &rep.CreatedAt); err != nil {
		return nil, err
	}
	if len(result) > 0 && string(result) != "null" {
		rep.Result = &domain.AnalysisResult{}
		if err := json.Unmarshal(result, rep.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &rep.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	return &rep, nil
}

// SaveReport implements store.ReportStore.
func (r *Repository) SaveReport(ctx context.Context, rep *domain.AnalysisReport) error {
	var result []byte
	if rep.Result != nil {
		b, err := json.Marshal(rep.Result)
		if err != nil {
			return fmt.Errorf("SaveReport: marshal result: %w", err)
		}
		result = b
	}
	sections, err := json.Marshal(rep.Sections)
	if err != nil {
		return fmt.Errorf("SaveReport: marshal sections: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO analysis_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			result = EXCLUDED.result,
			markdown = EXCLUDED.markdown,
			sections = EXCLUDED.sections,
			raw_response = EXCLUDED.raw_response,
			published_url = EXCLUDED.published_url`,
		rep.ID, rep.ApplicationID, rep.Kind, rep.Model, result,
		rep.Markdown, sections, rep.RawResponse, rep.PublishedURL, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveReport: %w", err)
	}
	return nil
}

// GetReport implements store.ReportStore.
func (r *Repository) GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	rep, err := scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM analysis_reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetReport: %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetReport: %w", err)
	}
	return rep, nil
}

// ListReports implements store.ReportStore.
func (r *Repository) ListReports(ctx context.Context, applicationID string) ([]*domain.AnalysisReport, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM analysis_reports WHERE application_id = $1 ORDER BY created_at DESC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("ListReports: query: %w", err)
	}
	defer rows.Close()

	result := []*domain.AnalysisReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("ListReports: scan: %w", err)
		}
		result = append(result, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListReports: iterating: %w", err)
	}
	return result, nil
}

// ListProducts implements store.ProductStore.
func (r *Repository) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, lender, min_amount, max_amount, interest_rate, max_term_months, purposes, description
		FROM loan_products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListProducts: query: %w", err)
	}
	defer rows.Close()

	result := []domain.LoanProduct{}
	for rows.Next() {
		var p domain.LoanProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Lender, &p.MinAmount, &p.MaxAmount,
			&p.InterestRate, &p.MaxTermMonths, &p.Purposes, &p.Description); err != nil {
			return nil, fmt.Errorf("ListProducts: scan: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListProducts: iterating: %w", err)
	}
	return result, nil
}

// Ensure Repository implements store.Repository.
var _ store.Repository = (*Repository)(nil)
