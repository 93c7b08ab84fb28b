package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/pipeline"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// MaxUploadSize bounds a single uploaded document.
const MaxUploadSize = 20 << 20

// DocumentRepository is the persistence the documents endpoints need.
type DocumentRepository interface {
	store.ApplicationStore
	pipeline.Repository
}

// DocumentsHandler handles document upload and metrics endpoints.
type DocumentsHandler struct {
	repo  DocumentRepository
	files pipeline.FileArchiver
	log   zerolog.Logger
}

// NewDocumentsHandler creates a new documents handler. files may be nil to
// skip archiving raw uploads.
func NewDocumentsHandler(repo DocumentRepository, files pipeline.FileArchiver, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{repo: repo, files: files, log: log}
}

// Upload handles POST /api/applications/{id}/documents/{category}
// Spreadsheets arrive as the multipart field "file"; identity and ownership
// forms arrive as a JSON body.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	category, err := domain.ParseDocumentCategory(vars["category"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	app, err := ownedApplication(ctx, h.repo, vars["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	var fileName string
	var content []byte
	switch category {
	case domain.CategoryFinancialPerformance, domain.CategoryBankStatements:
		fileName, content, err = readMultipartFile(w, r)
	default:
		content, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			err = fmt.Errorf("read body: %v: %w", err, domain.ErrMalformedInput)
		}
		fileName = string(category) + ".json"
	}
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	state, err := pipeline.Ingest(ctx, h.repo, h.files, pipeline.Upload{
		ApplicationID: app.ID,
		Category:      category,
		FileName:      fileName,
		Content:       content,
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document":   state.Document,
		"validation": state.Validation,
		"metrics":    state.Metrics.Metrics,
	})
}

func readMultipartFile(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return "", nil, fmt.Errorf("invalid multipart upload: %v: %w", err, domain.ErrMalformedInput)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, fmt.Errorf("missing form field \"file\": %w", domain.ErrMalformedInput)
		}
		return "", nil, fmt.Errorf("read upload: %v: %w", err, domain.ErrMalformedInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %v: %w", err, domain.ErrMalformedInput)
	}
	return filepath.Base(header.Filename), data, nil
}

// List handles GET /api/applications/{id}/documents
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := ownedApplication(ctx, h.repo, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	docs, err := h.repo.ListDocuments(ctx, app.ID)
	if err != nil {
		h.log.Error().Err(err).Str("application_id", app.ID).Msg("Failed to list documents")
		middleware.WriteDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []*domain.DocumentRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// Metrics handles GET /api/applications/{id}/metrics
func (h *DocumentsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := ownedApplication(ctx, h.repo, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	rec, err := h.repo.GetMetrics(ctx, app.ID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rec)
}
