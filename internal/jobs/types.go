package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeGenerateReport represents an AI report generation job.
	JobTypeGenerateReport JobType = "generate_report"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// MaxRetries caps automatic retries of a report job.
const MaxRetries = 1

// ReportJob asks for one AI report on an application.
type ReportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// ApplicationID is the loan application being assessed.
	ApplicationID string `json:"application_id"`

	// UserID is the owner who requested the report.
	UserID string `json:"user_id"`

	// Kind is domain.ReportStructured or domain.ReportMarkdown.
	Kind string `json:"kind"`

	// ReportID is assigned at enqueue time so clients can poll for it.
	ReportID string `json:"report_id"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Type returns the job type.
func (j *ReportJob) Type() JobType {
	return JobTypeGenerateReport
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishReport publishes a report generation job.
	PublishReport(ctx context.Context, job *ReportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. Errors for which Retryable reports true are
// retried up to the job's MaxRetries.
type JobHandler func(ctx context.Context, job *ReportJob) error

// Retryable reports whether a failed job is worth running again. Only
// failures of the external AI service are.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrExternalService)
}

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ReportJob) error

	// GetJob retrieves a job by ID, or domain.ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*ReportJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ApplicationID filters jobs by application ID.
	ApplicationID string

	// UserID filters jobs by owner. It is applied before Limit and Offset.
	UserID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
