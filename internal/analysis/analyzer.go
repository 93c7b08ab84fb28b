package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/logger"
)

// MaxRetries is the most automatic retries an Analyzer will make.
const MaxRetries = 1

// Analyzer builds prompts, calls a Gateway and parses the replies.
type Analyzer struct {
	gateway Gateway
	retries int
}

// NewAnalyzer creates an analyzer. retries is clamped to [0, MaxRetries].
func NewAnalyzer(gateway Gateway, retries int) *Analyzer {
	if retries < 0 {
		retries = 0
	}
	if retries > MaxRetries {
		retries = MaxRetries
	}
	return &Analyzer{gateway: gateway, retries: retries}
}

// Analyze returns a structured assessment of the application and the raw
// reply it was parsed from.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*domain.AnalysisResult, string, error) {
	prompt, err := BuildAnalysisPrompt(in)
	if err != nil {
		return nil, "", fmt.Errorf("Analyze: %w", err)
	}

	var (
		result *domain.AnalysisResult
		raw    string
	)
	err = a.withRetry(ctx, in.Application.ID, func() error {
		text, err := a.gateway.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		res, err := ParseAnalysis(text)
		if err != nil {
			return err
		}
		result, raw = res, text
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("Analyze: %w", err)
	}
	return result, raw, nil
}

// Report returns a cleaned markdown report and its sections.
func (a *Analyzer) Report(ctx context.Context, in Input) (string, []domain.ReportSection, error) {
	prompt, err := BuildReportPrompt(in)
	if err != nil {
		return "", nil, fmt.Errorf("Report: %w", err)
	}

	var md string
	err = a.withRetry(ctx, in.Application.ID, func() error {
		text, err := a.gateway.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		md = CleanMarkdown(text)
		if md == "" {
			return fmt.Errorf("empty report: %w", domain.ErrExternalService)
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("Report: %w", err)
	}
	return md, SplitSections(md), nil
}

// withRetry runs fn once plus up to a.retries more times while it fails with
// domain.ErrExternalService and ctx is live.
func (a *Analyzer) withRetry(ctx context.Context, applicationID string, fn func() error) error {
	log := logger.FromContext(ctx)

	var err error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrExternalService) || ctx.Err() != nil {
			return err
		}
		log.Warn().
			Err(err).
			Str("application_id", applicationID).
			Int("attempt", attempt+1).
			Msg("model call failed")
	}
	return err
}
