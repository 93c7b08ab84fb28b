// Package infra selects the persistence backend named in the config.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/infra/bigquery"
	"github.com/dvloznov/credit-assessor/internal/infra/postgres"
	"github.com/dvloznov/credit-assessor/internal/store"
	"github.com/dvloznov/credit-assessor/internal/store/inmemory"
)

// OpenRepository opens the repository for cfg.StoreBackend.
func OpenRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return inmemory.NewStore(), nil
	case config.BackendPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendBigQuery:
		repo, err := bigquery.NewRepository(ctx, bigquery.Dataset{Project: cfg.BQProject, Name: cfg.BQDataset})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("OpenRepository: unknown backend %q", cfg.StoreBackend)
	}
}
