// Package inmemory is a map-backed store.Repository for local runs and tests.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/store"
)

type docKey struct {
	applicationID string
	category      domain.DocumentCategory
}

// Store is an in-memory implementation of store.Repository.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	applications map[string]*domain.LoanApplication
	documents    map[docKey]*domain.DocumentRecord
	metrics      map[string]*domain.MetricsRecord
	reports      map[string]*domain.AnalysisReport
	products     []domain.LoanProduct
}

// NewStore creates an empty store seeded with the default product catalogue.
func NewStore() *Store {
	return &Store{
		applications: make(map[string]*domain.LoanApplication),
		documents:    make(map[docKey]*domain.DocumentRecord),
		metrics:      make(map[string]*domain.MetricsRecord),
		reports:      make(map[string]*domain.AnalysisReport),
		products:     store.DefaultProducts(),
	}
}

func copyApplication(app *domain.LoanApplication) *domain.LoanApplication {
	c := *app
	if app.CICGroup != nil {
		g := *app.CICGroup
		c.CICGroup = &g
	}
	return &c
}

// CreateApplication implements store.ApplicationStore.
func (s *Store) CreateApplication(ctx context.Context, app *domain.LoanApplication) error {
	if app.ID == "" {
		return fmt.Errorf("CreateApplication: application ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.ID]; exists {
		return fmt.Errorf("CreateApplication: application %s already exists", app.ID)
	}
	s.applications[app.ID] = copyApplication(app)
	return nil
}

// GetApplication implements store.ApplicationStore.
func (s *Store) GetApplication(ctx context.Context, id string) (*domain.LoanApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, exists := s.applications[id]
	if !exists {
		return nil, fmt.Errorf("GetApplication: %s: %w", id, domain.ErrNotFound)
	}
	return copyApplication(app), nil
}

// ListApplications implements store.ApplicationStore.
func (s *Store) ListApplications(ctx context.Context, userID string) ([]*domain.LoanApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.LoanApplication{}
	for _, app := range s.applications {
		if app.UserID == userID {
			result = append(result, copyApplication(app))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateApplicationStatus implements store.ApplicationStore.
func (s *Store) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.applications[id]
	if !exists {
		return fmt.Errorf("UpdateApplicationStatus: %s: %w", id, domain.ErrNotFound)
	}
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	return nil
}

// SaveDocument implements store.DocumentStore. The last write for an
// application and category wins.
func (s *Store) SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error {
	if rec.ApplicationID == "" || rec.Category == "" {
		return fmt.Errorf("SaveDocument: application ID and category are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *rec
	s.documents[docKey{rec.ApplicationID, rec.Category}] = &c
	return nil
}

// ListDocuments implements store.DocumentStore.
func (s *Store) ListDocuments(ctx context.Context, applicationID string) ([]*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.DocumentRecord{}
	for key, rec := range s.documents {
		if key.applicationID == applicationID {
			c := *rec
			result = append(result, &c)
		}
	}
	store.SortDocuments(result)
	return result, nil
}

// SaveMetrics implements store.MetricsStore.
func (s *Store) SaveMetrics(ctx context.Context, rec *domain.MetricsRecord) error {
	if rec.ApplicationID == "" {
		return fmt.Errorf("SaveMetrics: application ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *rec
	s.metrics[rec.ApplicationID] = &c
	return nil
}

// GetMetrics implements store.MetricsStore.
func (s *Store) GetMetrics(ctx context.Context, applicationID string) (*domain.MetricsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.metrics[applicationID]
	if !exists {
		return nil, fmt.Errorf("GetMetrics: %s: %w", applicationID, domain.ErrNotFound)
	}
	c := *rec
	return &c, nil
}

// SaveReport implements store.ReportStore.
func (s *Store) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	if report.ID == "" {
		return fmt.Errorf("SaveReport: report ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *report
	s.reports[report.ID] = &c
	return nil
}

// GetReport implements store.ReportStore.
func (s *Store) GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("GetReport: %s: %w", id, domain.ErrNotFound)
	}
	c := *report
	return &c, nil
}

// ListReports implements store.ReportStore.
func (s *Store) ListReports(ctx context.Context, applicationID string) ([]*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.AnalysisReport{}
	for _, report := range s.reports {
		if report.ApplicationID == applicationID {
			c := *report
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ListProducts implements store.ProductStore.
func (s *Store) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LoanProduct, len(s.products))
	copy(out, s.products)
	return out, nil
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)
