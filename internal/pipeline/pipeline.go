// Package pipeline ingests one application document: archive, parse,
// validate, save and recompute the application's metrics.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/logger"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	ApplicationID string
	Category      domain.DocumentCategory
	FileName      string
	Content       []byte

	SourceURI  string
	Payload    *domain.DocumentPayload
	Validation domain.ValidationResult
	Document   *domain.DocumentRecord
	Metrics    *domain.MetricsRecord
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewDocumentIngestionPipeline creates the standard pipeline: parse,
// validate, archive, save the document, then recompute metrics. An upload
// that fails to parse is never archived. files may be nil, in which case
// uploads are not archived.
func NewDocumentIngestionPipeline(repo Repository, files FileArchiver) *Pipeline {
	return NewPipeline(
		&ParseStep{},
		&ValidateStep{},
		&ArchiveStep{Files: files},
		&SaveDocumentStep{Repo: repo},
		&RecomputeMetricsStep{Repo: repo},
	)
}

// Upload is one submitted document.
type Upload struct {
	ApplicationID string
	Category      domain.DocumentCategory
	FileName      string
	Content       []byte
}

// Ingest runs the standard pipeline for one upload and returns the final
// state. Validation errors do not stop the pipeline; they are saved with
// the document.
func Ingest(ctx context.Context, repo Repository, files FileArchiver, up Upload) (*PipelineState, error) {
	log := logger.ForApplication(logger.FromContext(ctx), up.ApplicationID, string(up.Category))
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{
		ApplicationID: up.ApplicationID,
		Category:      up.Category,
		FileName:      up.FileName,
		Content:       up.Content,
	}
	if err := NewDocumentIngestionPipeline(repo, files).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("document ingestion failed")
		return state, err
	}

	log.Info().
		Bool("valid", state.Validation.Valid).
		Int("errors", len(state.Validation.Errors)).
		Int("warnings", len(state.Validation.Warnings)).
		Msg("document ingested")
	return state, nil
}
