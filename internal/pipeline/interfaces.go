package pipeline

import (
	"context"

	"github.com/dvloznov/credit-assessor/internal/store"
)

// FileArchiver stores raw uploads and returns a URI for them.
type FileArchiver interface {
	Archive(ctx context.Context, applicationID, category, fileName string, data []byte) (string, error)
}

// Repository is the persistence the ingestion pipeline needs.
type Repository interface {
	store.DocumentStore
	store.MetricsStore
}
