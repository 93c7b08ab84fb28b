package domain

import "time"

// Application statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusAnalyzed  = "analyzed"
)

// LoanApplication is a borrower's application with its baseline score.
type LoanApplication struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	ApplicantType string        `json:"applicant_type"`
	CICGroup      *int          `json:"cic_group,omitempty"`
	CompanyName   string        `json:"company_name,omitempty"`
	Form          LoanFormInput `json:"form"`
	Score         ScoreResult   `json:"baseline"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DocumentRecord is the latest saved payload for one application and
// category. Saving the same pair again replaces it.
type DocumentRecord struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"application_id"`
	Category      DocumentCategory `json:"category"`
	Payload       DocumentPayload  `json:"payload"`
	Validation    ValidationResult `json:"validation"`
	SourceURI     string           `json:"source_uri,omitempty"`
	FileName      string           `json:"file_name,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// MetricsRecord holds the aggregated metrics of an application.
type MetricsRecord struct {
	ApplicationID string           `json:"application_id"`
	Metrics       FinancialMetrics `json:"metrics"`
	ComputedAt    time.Time        `json:"computed_at"`
}

// Report kinds.
const (
	ReportStructured = "structured"
	ReportMarkdown   = "markdown"
)

// ReportSection is one "## " section of a markdown report.
type ReportSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AnalysisReport is a persisted AI analysis of an application.
type AnalysisReport struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Kind          string          `json:"kind"`
	Model         string          `json:"model,omitempty"`
	Result        *AnalysisResult `json:"result,omitempty"`
	Markdown      string          `json:"markdown,omitempty"`
	Sections      []ReportSection `json:"sections,omitempty"`
	RawResponse   string          `json:"-"`
	PublishedURL  string          `json:"published_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
