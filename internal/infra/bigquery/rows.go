package bigquery

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// ApplicationRow represents a loan_applications record in BigQuery.
type ApplicationRow struct {
	ID            string                 `bigquery:"id"`
	UserID        string                 `bigquery:"user_id"`
	ApplicantType string                 `bigquery:"applicant_type"`
	CICGroup      bigquery.NullInt64     `bigquery:"cic_group"`
	CompanyName   string                 `bigquery:"company_name"`
	LoanAmount    float64                `bigquery:"loan_amount"`
	LoanPurpose   string                 `bigquery:"loan_purpose"`
	AnnualRevenue string                 `bigquery:"annual_revenue"`
	TimeInBiz     string                 `bigquery:"time_in_business"`
	Score         int64                  `bigquery:"baseline_score"`
	Reasoning     string                 `bigquery:"baseline_reasoning"`
	Status        string                 `bigquery:"status"`
	CreatedTS     time.Time              `bigquery:"created_ts"`
	UpdatedTS     bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// DocumentDataRow represents a document_data record. Payload and
// validation are JSON strings.
type DocumentDataRow struct {
	ID                 string            `bigquery:"id"`
	ApplicationID      string            `bigquery:"application_id"`
	Category           string            `bigquery:"category"`
	SchemaVersion      string            `bigquery:"schema_version"`
	Payload            string            `bigquery:"payload"`
	Validation         string            `bigquery:"validation"`
	SourceURI          string            `bigquery:"source_uri"`
	FileName           string            `bigquery:"file_name"`
	StatementStartDate bigquery.NullDate `bigquery:"statement_start_date"`
	StatementEndDate   bigquery.NullDate `bigquery:"statement_end_date"`
	UpdatedTS          time.Time         `bigquery:"updated_ts"`
}

// MetricsRow represents a financial_metrics record.
type MetricsRow struct {
	ApplicationID    string              `bigquery:"application_id"`
	TotalAssets      bigquery.NullString `bigquery:"total_assets"`
	TotalLiabilities bigquery.NullString `bigquery:"total_liabilities"`
	TotalEquity      bigquery.NullString `bigquery:"total_equity"`
	Metrics          string              `bigquery:"metrics"`
	ComputedTS       time.Time           `bigquery:"computed_ts"`
}

// ReportRow represents an analysis_reports record.
type ReportRow struct {
	ID            string              `bigquery:"id"`
	ApplicationID string              `bigquery:"application_id"`
	Kind          string              `bigquery:"kind"`
	Model         string              `bigquery:"model"`
	Result        bigquery.NullString `bigquery:"result"`
	Markdown      string              `bigquery:"markdown"`
	Sections      string              `bigquery:"sections"`
	RawResponse   string              `bigquery:"raw_response"`
	PublishedURL  string              `bigquery:"published_url"`
	CreatedTS     time.Time           `bigquery:"created_ts"`
}

// ProductRow represents a loan_products record.
type ProductRow struct {
	ID            string   `bigquery:"id"`
	Name          string   `bigquery:"name"`
	Lender        string   `bigquery:"lender"`
	MinAmount     float64  `bigquery:"min_amount"`
	MaxAmount     float64  `bigquery:"max_amount"`
	InterestRate  float64  `bigquery:"interest_rate"`
	MaxTermMonths int64    `bigquery:"max_term_months"`
	Purposes      []string `bigquery:"purposes"`
	Description   string   `bigquery:"description"`
}

func applicationToRow(app *domain.LoanApplication) *ApplicationRow {
	row := &ApplicationRow{
		ID:            app.ID,
		UserID:        app.UserID,
		ApplicantType: app.ApplicantType,
		CompanyName:   app.CompanyName,
		LoanAmount:    app.Form.LoanAmount,
		LoanPurpose:   app.Form.LoanPurpose,
		AnnualRevenue: app.Form.AnnualRevenue,
		TimeInBiz:     app.Form.TimeInBusiness,
		Score:         int64(app.Score.Score),
		Reasoning:     app.Score.Reasoning,
		Status:        app.Status,
		CreatedTS:     app.CreatedAt,
	}
	if app.CICGroup != nil {
		row.CICGroup = bigquery.NullInt64{Int64: int64(*app.CICGroup), Valid: true}
	}
	if !app.UpdatedAt.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: app.UpdatedAt, Valid: true}
	}
	return row
}

func (r *ApplicationRow) toDomain() *domain.LoanApplication {
	app := &domain.LoanApplication{
		ID:            r.ID,
		UserID:        r.UserID,
		ApplicantType: r.ApplicantType,
		CompanyName:   r.CompanyName,
		Form: domain.LoanFormInput{
			LoanAmount:     r.LoanAmount,
			LoanPurpose:    r.LoanPurpose,
			AnnualRevenue:  r.AnnualRevenue,
			TimeInBusiness: r.TimeInBiz,
		},
		Score:     domain.ScoreResult{Score: int(r.Score), Reasoning: r.Reasoning},
		Status:    r.Status,
		CreatedAt: r.CreatedTS,
	}
	if r.CICGroup.Valid {
		g := int(r.CICGroup.Int64)
		app.CICGroup = &g
	}
	if r.UpdatedTS.Valid {
		app.UpdatedAt = r.UpdatedTS.Timestamp
	}
	return app
}

func documentToRow(rec *domain.DocumentRecord) (*DocumentDataRow, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	validation, err := json.Marshal(rec.Validation)
	if err != nil {
		return nil, fmt.Errorf("marshal validation: %w", err)
	}

	row := &DocumentDataRow{
		ID:            rec.ID,
		ApplicationID: rec.ApplicationID,
		Category:      string(rec.Category),
		SchemaVersion: rec.Payload.Version,
		Payload:       string(payload),
		Validation:    string(validation),
		SourceURI:     rec.SourceURI,
		FileName:      rec.FileName,
		UpdatedTS:     rec.UpdatedAt,
	}
	if bs := rec.Payload.BankStatement; bs != nil {
		row.StatementStartDate = statementDate(bs.Summary.StartDate)
		row.StatementEndDate = statementDate(bs.Summary.EndDate)
	}
	return row, nil
}

func (r *DocumentDataRow) toDomain() (*domain.DocumentRecord, error) {
	rec := &domain.DocumentRecord{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Category:      domain.DocumentCategory(r.Category),
		SourceURI:     r.SourceURI,
		FileName:      r.FileName,
		UpdatedAt:     r.UpdatedTS,
	}
	if err := json.Unmarshal([]byte(r.Payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", r.Category, err)
	}
	if err := json.Unmarshal([]byte(r.Validation), &rec.Validation); err != nil {
		return nil, fmt.Errorf("decode validation for %s: %w", r.Category, err)
	}
	return rec, nil
}

// Statement dates arrive as written on the statement.
var statementDateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02", "02-01-2006"}

// statementDate parses a statement date into a DATE column value. Unknown
// formats are stored as NULL; the raw string stays in the payload.
func statementDate(s string) bigquery.NullDate {
	s = strings.TrimSpace(s)
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
		}
	}
	return bigquery.NullDate{}
}

func metricsToRow(rec *domain.MetricsRecord) (*MetricsRow, error) {
	raw, err := json.Marshal(rec.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	return &MetricsRow{
		ApplicationID:    rec.ApplicationID,
		TotalAssets:      bigquery.NullString{StringVal: rec.Metrics.TotalAssets, Valid: rec.Metrics.TotalAssets != ""},
		TotalLiabilities: bigquery.NullString{StringVal: rec.Metrics.TotalLiabilities, Valid: rec.Metrics.TotalLiabilities != ""},
		TotalEquity:      bigquery.NullString{StringVal: rec.Metrics.TotalEquity, Valid: rec.Metrics.TotalEquity != ""},
		Metrics:          string(raw),
		ComputedTS:       rec.ComputedAt,
	}, nil
}

func (r *MetricsRow) toDomain() (*domain.MetricsRecord, error) {
	rec := &domain.MetricsRecord{ApplicationID: r.ApplicationID, ComputedAt: r.ComputedTS}
	if err := json.Unmarshal([]byte(r.Metrics), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return rec, nil
}

func reportToRow(rep *domain.AnalysisReport) (*ReportRow, error) {
	row := &ReportRow{
		ID:            rep.ID,
		ApplicationID: rep.ApplicationID,
		Kind:          rep.Kind,
		Model:         rep.Model,
		Markdown:      rep.Markdown,
		RawResponse:   rep.RawResponse,
		PublishedURL:  rep.PublishedURL,
		CreatedTS:     rep.CreatedAt,
	}
	if rep.Result != nil {
		raw, err := json.Marshal(rep.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		row.Result = bigquery.NullString{StringVal: string(raw), Valid: true}
	}
	sections, err := json.Marshal(rep.Sections)
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}
	row.Sections = string(sections)
	return row, nil
}

func (r *ReportRow) toDomain() (*domain.AnalysisReport, error) {
	rep := &domain.AnalysisReport{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Kind:          r.Kind,
		Model:         r.Model,
		Markdown:      r.Markdown,
		RawResponse:   r.RawResponse,
		PublishedURL:  r.PublishedURL,
		CreatedAt:     r.CreatedTS,
	}
	if r.Result.Valid {
		rep.Result = &domain.AnalysisResult{}
		if err := json.Unmarshal([]byte(r.Result.StringVal), rep.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if r.Sections != "" {
		if err := json.Unmarshal([]byte(r.Sections), &rep.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	return rep, nil
}

func (r *ProductRow) toDomain() domain.LoanProduct {
	return domain.LoanProduct{
		ID:            r.ID,
		Name:          r.Name,
		Lender:        r.Lender,
		MinAmount:     r.MinAmount,
		MaxAmount:     r.MaxAmount,
		InterestRate:  r.InterestRate,
		MaxTermMonths: int(r.MaxTermMonths),
		Purposes:      r.Purposes,
		Description:   r.Description,
	}
}
