package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/metrics"
	"github.com/dvloznov/credit-assessor/internal/parsing"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// ArchiveStep stores the raw upload. Without an archiver it does nothing.
type ArchiveStep struct {
	Files FileArchiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Files == nil {
		return nil
	}
	uri, err := s.Files.Archive(ctx, state.ApplicationID, string(state.Category), state.FileName, state.Content)
	if err != nil {
		return fmt.Errorf("ArchiveStep: %w", err)
	}
	state.SourceURI = uri
	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Msg("upload archived")
	return nil
}

// ParseStep turns the upload into a typed payload. Spreadsheets go
// through the table parsers; identity and ownership forms are JSON.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	payload := &domain.DocumentPayload{Category: state.Category}

	switch state.Category {
	case domain.CategoryFinancialPerformance:
		table, err := parsing.ReadTable(state.FileName, bytes.NewReader(state.Content))
		if err != nil {
			return err
		}
		rec, err := parsing.BalanceSheetFromTable(table)
		if err != nil {
			return err
		}
		payload.Version = domain.FinancialPerformanceVersion
		payload.FinancialPerformance = rec

	case domain.CategoryBankStatements:
		table, err := parsing.ReadTable(state.FileName, bytes.NewReader(state.Content))
		if err != nil {
			return err
		}
		bs, err := parsing.BankStatementFromTable(table)
		if err != nil {
			return err
		}
		payload.Version = domain.BankStatementVersion
		payload.BankStatement = bs

	case domain.CategoryBusinessIdentity:
		bi, err := BusinessIdentityFromForm(state.Content)
		if err != nil {
			return err
		}
		payload.Version = domain.BusinessIdentityVersion
		payload.BusinessIdentity = bi

	case domain.CategoryOwnership:
		own, err := OwnershipFromForm(state.Content)
		if err != nil {
			return err
		}
		payload.Version = domain.OwnershipVersion
		payload.Ownership = own

	default:
		return fmt.Errorf("ParseStep: unsupported category %q: %w", state.Category, domain.ErrMalformedInput)
	}

	state.Payload = payload
	return nil
}

// ValidateStep attaches a validation result. Problems found here are
// recorded, not returned, so the document is still saved.
type ValidateStep struct{}

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Payload == nil {
		return fmt.Errorf("ValidateStep: no payload")
	}
	state.Validation = Validate(*state.Payload)
	return nil
}

// Validate runs the validator matching the payload's category.
func Validate(p domain.DocumentPayload) domain.ValidationResult {
	switch p.Category {
	case domain.CategoryFinancialPerformance:
		return parsing.ValidateBalanceSheet(p.FinancialPerformance)
	case domain.CategoryBankStatements:
		if p.BankStatement == nil {
			res := domain.NewValidationResult()
			res.AddError("Bank statement is missing")
			return res
		}
		return parsing.ValidateBankStatement(p.BankStatement.Summary)
	case domain.CategoryBusinessIdentity:
		return ValidateBusinessIdentity(p.BusinessIdentity)
	case domain.CategoryOwnership:
		return ValidateOwnership(p.Ownership)
	}
	res := domain.NewValidationResult()
	res.AddError("Unknown document category %q", p.Category)
	return res
}

// SaveDocumentStep upserts the document for its application and category.
type SaveDocumentStep struct {
	Repo store.DocumentStore
}

func (s *SaveDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := state.Payload.Check(); err != nil {
		return fmt.Errorf("SaveDocumentStep: %w", err)
	}
	rec := &domain.DocumentRecord{
		ID:            uuid.New().String(),
		ApplicationID: state.ApplicationID,
		Category:      state.Category,
		Payload:       *state.Payload,
		Validation:    state.Validation,
		SourceURI:     state.SourceURI,
		FileName:      state.FileName,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.SaveDocument(ctx, rec); err != nil {
		return fmt.Errorf("SaveDocumentStep: %w", err)
	}
	state.Document = rec
	return nil
}

// RecomputeMetricsStep rebuilds the application's metrics from every
// stored document and replaces the previous record.
type RecomputeMetricsStep struct {
	Repo Repository
}

func (s *RecomputeMetricsStep) Execute(ctx context.Context, state *PipelineState) error {
	rec, err := RecomputeMetrics(ctx, s.Repo, state.ApplicationID)
	if err != nil {
		return err
	}
	state.Metrics = rec
	return nil
}

// RecomputeMetrics aggregates the stored documents of an application and
// saves the result.
func RecomputeMetrics(ctx context.Context, repo Repository, applicationID string) (*domain.MetricsRecord, error) {
	docs, err := repo.ListDocuments(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("RecomputeMetrics: list documents: %w", err)
	}
	rec := &domain.MetricsRecord{
		ApplicationID: applicationID,
		Metrics:       metrics.ComputeFinancialMetrics(store.Payloads(docs)),
		ComputedAt:    time.Now().UTC(),
	}
	if err := repo.SaveMetrics(ctx, rec); err != nil {
		return nil, fmt.Errorf("RecomputeMetrics: save metrics: %w", err)
	}
	return rec, nil
}
