package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/scoring"
	"github.com/dvloznov/credit-assessor/internal/store"
)

// ApplicationsHandler handles loan application and scoring endpoints.
type ApplicationsHandler struct {
	apps store.ApplicationStore
	log  zerolog.Logger
}

// NewApplicationsHandler creates a new applications handler.
func NewApplicationsHandler(apps store.ApplicationStore, log zerolog.Logger) *ApplicationsHandler {
	return &ApplicationsHandler{apps: apps, log: log}
}

type createApplicationRequest struct {
	ApplicantType string `json:"applicant_type"`
	CICGroup      *int   `json:"cic_group"`
	CompanyName   string `json:"company_name"`
	domain.LoanFormInput
}

// Score handles POST /api/score
func (h *ApplicationsHandler) Score(w http.ResponseWriter, r *http.Request) {
	var form domain.LoanFormInput
	if err := decodeJSON(r, &form); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if err := scoring.ValidateLoanForm(form); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, scoring.CalculateBaselineScore(form))
}

// Create handles POST /api/applications
func (h *ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if err := validateApplicant(&req); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if err := scoring.ValidateLoanForm(req.LoanFormInput); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	app := &domain.LoanApplication{
		ID:            uuid.New().String(),
		UserID:        middleware.UserID(ctx),
		ApplicantType: req.ApplicantType,
		CICGroup:      req.CICGroup,
		CompanyName:   strings.TrimSpace(req.CompanyName),
		Form:          req.LoanFormInput,
		Score:         scoring.CalculateBaselineScore(req.LoanFormInput),
		Status:        domain.StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.apps.CreateApplication(ctx, app); err != nil {
		h.log.Error().Err(err).Msg("Failed to create application")
		middleware.WriteDomainError(w, err)
		return
	}

	h.log.Info().Str("application_id", app.ID).Int("baseline_score", app.Score.Score).Msg("Application created")
	middleware.WriteJSON(w, http.StatusCreated, app)
}

// validateApplicant defaults the applicant type and checks the CIC group.
func validateApplicant(req *createApplicationRequest) error {
	req.ApplicantType = strings.ToLower(strings.TrimSpace(req.ApplicantType))
	switch req.ApplicantType {
	case "":
		req.ApplicantType = domain.ApplicantSME
	case domain.ApplicantSME, domain.ApplicantIndividual:
	default:
		return fmt.Errorf("unknown applicant_type %q: %w", req.ApplicantType, domain.ErrMalformedInput)
	}
	if g := req.CICGroup; g != nil && (*g < 1 || *g > 5) {
		return fmt.Errorf("cic_group must be between 1 and 5: %w", domain.ErrMalformedInput)
	}
	return nil
}

// List handles GET /api/applications
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apps, err := h.apps.ListApplications(ctx, middleware.UserID(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list applications")
		middleware.WriteDomainError(w, err)
		return
	}
	if apps == nil {
		apps = []*domain.LoanApplication{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

// Get handles GET /api/applications/{id}
func (h *ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := ownedApplication(r.Context(), h.apps, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, app)
}

// ProductsHandler handles the loan product catalogue.
type ProductsHandler struct {
	products store.ProductStore
	log      zerolog.Logger
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(products store.ProductStore, log zerolog.Logger) *ProductsHandler {
	return &ProductsHandler{products: products, log: log}
}

// ListProducts handles GET /api/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list products")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}
