// Package handlers implements the HTTP API of the assessor.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w: %w", err, domain.ErrMalformedInput)
	}
	return nil
}

// ownedApplication loads an application and checks that the caller owns it.
// Another user's application yields domain.ErrForbidden and nothing else.
func ownedApplication(ctx context.Context, apps store.ApplicationStore, id string) (*domain.LoanApplication, error) {
	app, err := apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != middleware.UserID(ctx) {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrForbidden)
	}
	return app, nil
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Handlers groups every endpoint handler for NewRouter.
type Handlers struct {
	Applications *ApplicationsHandler
	Documents    *DocumentsHandler
	Analysis     *AnalysisHandler
	Jobs         *JobsHandler
	Products     *ProductsHandler
}

// NewRouter registers every route.
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", h.Products.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/score", h.Applications.Score).Methods(http.MethodPost)

	api.HandleFunc("/applications", h.Applications.Create).Methods(http.MethodPost)
	api.HandleFunc("/applications", h.Applications.List).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}", h.Applications.Get).Methods(http.MethodGet)

	api.HandleFunc("/applications/{id}/documents/{category}", h.Documents.Upload).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/documents", h.Documents.List).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/metrics", h.Documents.Metrics).Methods(http.MethodGet)

	api.HandleFunc("/applications/{id}/analysis", h.Analysis.Analyze).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/reports", h.Analysis.EnqueueReport).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/reports", h.Analysis.ListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", h.Analysis.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}/html", h.Analysis.GetReportHTML).Methods(http.MethodGet)

	api.HandleFunc("/jobs", h.Jobs.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.Jobs.GetJob).Methods(http.MethodGet)

	return r
}
