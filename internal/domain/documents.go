package domain

import (
	"fmt"
	"strings"
)

// DocumentCategory identifies which part of an application a document belongs to.
type DocumentCategory string

const (
	CategoryBusinessIdentity     DocumentCategory = "business-identity"
	CategoryFinancialPerformance DocumentCategory = "financial-performance"
	CategoryBankStatements       DocumentCategory = "bank-statements"
	CategoryOwnership            DocumentCategory = "ownership"
)

// DocumentCategories lists every accepted category.
var DocumentCategories = []DocumentCategory{
	CategoryBusinessIdentity,
	CategoryFinancialPerformance,
	CategoryBankStatements,
	CategoryOwnership,
}

// ParseDocumentCategory normalizes s and checks it against the category enum.
func ParseDocumentCategory(s string) (DocumentCategory, error) {
	norm := DocumentCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range DocumentCategories {
		if c == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid document category %q: %w", s, ErrMalformedInput)
}

// Payload schema versions. Bump when the shape of a payload changes.
const (
	BusinessIdentityVersion     = "bi.v1"
	FinancialPerformanceVersion = "fp.v1"
	BankStatementVersion        = "bs.v1"
	OwnershipVersion            = "own.v1"
)

// Balance is an opening/closing pair of decimal strings. An empty string
// means the source row was not found.
type Balance struct {
	Opening string `json:"opening"`
	Closing string `json:"closing"`
}

// Semantic field names of the financial performance schema.
const (
	FieldCash                 = "cash"
	FieldShortTermInvestments = "short_term_investments"
	FieldAccountsReceivable   = "accounts_receivable"
	FieldInventories          = "inventories"
	FieldOtherCurrentAssets   = "other_current_assets"
	FieldFixedAssets          = "fixed_assets"
	FieldLongTermInvestments  = "long_term_investments"

	FieldAccountsPayable  = "accounts_payable"
	FieldShortTermDebt    = "short_term_debt"
	FieldLongTermDebt     = "long_term_debt"
	FieldOtherLiabilities = "other_liabilities"

	FieldCommonStock      = "common_stock"
	FieldRetainedEarnings = "retained_earnings"
	FieldOtherReserves    = "other_reserves"
)

// FinancialPerformanceRecord is a balance sheet mapped onto the fixed schema.
type FinancialPerformanceRecord struct {
	Version     string             `json:"version"`
	Assets      map[string]Balance `json:"assets"`
	Liabilities map[string]Balance `json:"liabilities"`
	Equity      map[string]Balance `json:"equity"`
}

// BusinessIdentity is the company profile entered on the application form.
type BusinessIdentity struct {
	CompanyName     string `json:"company_name"`
	TaxCode         string `json:"tax_code"`
	BusinessType    string `json:"business_type,omitempty"`
	Industry        string `json:"industry,omitempty"`
	Address         string `json:"address,omitempty"`
	EstablishedDate string `json:"established_date,omitempty"`
}

// Owner is one shareholder or guarantor.
type Owner struct {
	Name         string  `json:"name"`
	Role         string  `json:"role,omitempty"`
	SharePercent float64 `json:"share_percent"`
	NationalID   string  `json:"national_id,omitempty"`
}

// Ownership is the ownership structure entered on the application form.
type Ownership struct {
	Owners []Owner `json:"owners"`
}

// DocumentPayload is a tagged union over the four document categories.
// Exactly one of the pointer members is set, matching Category.
type DocumentPayload struct {
	Category DocumentCategory `json:"category"`
	Version  string           `json:"version"`

	BusinessIdentity     *BusinessIdentity           `json:"business_identity,omitempty"`
	FinancialPerformance *FinancialPerformanceRecord `json:"financial_performance,omitempty"`
	BankStatement        *BankStatement              `json:"bank_statement,omitempty"`
	Ownership            *Ownership                  `json:"ownership,omitempty"`
}

// Check verifies that the member matching Category is the only one set.
func (p DocumentPayload) Check() error {
	set := 0
	for _, present := range []bool{
		p.BusinessIdentity != nil,
		p.FinancialPerformance != nil,
		p.BankStatement != nil,
		p.Ownership != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("payload for %q has %d members set, want 1", p.Category, set)
	}

	var ok bool
	switch p.Category {
	case CategoryBusinessIdentity:
		ok = p.BusinessIdentity != nil
	case CategoryFinancialPerformance:
		ok = p.FinancialPerformance != nil
	case CategoryBankStatements:
		ok = p.BankStatement != nil
	case CategoryOwnership:
		ok = p.Ownership != nil
	}
	if !ok {
		return fmt.Errorf("payload member does not match category %q", p.Category)
	}
	return nil
}

// ValidationResult collects fatal errors and non-fatal warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError records a fatal problem.
func (v *ValidationResult) AddError(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	v.Valid = false
}

// AddWarning records a non-fatal problem.
func (v *ValidationResult) AddWarning(format string, args ...interface{}) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
