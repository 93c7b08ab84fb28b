package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// InputSource is the read side of the repository an analysis needs.
type InputSource interface {
	GetApplication(ctx context.Context, id string) (*domain.LoanApplication, error)
	GetMetrics(ctx context.Context, applicationID string) (*domain.MetricsRecord, error)
	ListProducts(ctx context.Context) ([]domain.LoanProduct, error)
}

// LoadInput gathers the application, its metrics and the product catalogue.
// An application with no uploaded documents yet has nil Metrics.
func LoadInput(ctx context.Context, src InputSource, applicationID string) (Input, error) {
	app, err := src.GetApplication(ctx, applicationID)
	if err != nil {
		return Input{}, fmt.Errorf("LoadInput: %w", err)
	}
	in := Input{Application: *app}

	rec, err := src.GetMetrics(ctx, applicationID)
	switch {
	case err == nil:
		in.Metrics = &rec.Metrics
	case !errors.Is(err, domain.ErrNotFound):
		return Input{}, fmt.Errorf("LoadInput: %w", err)
	}

	products, err := src.ListProducts(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("LoadInput: %w", err)
	}
	in.Products = products
	return in, nil
}
