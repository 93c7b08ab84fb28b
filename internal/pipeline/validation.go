package pipeline

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

// shareTolerance absorbs rounding in hand-entered percentages.
const shareTolerance = 0.01

var establishedDateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "2006"}

// ValidateBusinessIdentity checks the company profile form.
func ValidateBusinessIdentity(bi *domain.BusinessIdentity) domain.ValidationResult {
	res := domain.NewValidationResult()
	if bi == nil {
		res.AddError("Business identity is missing")
		return res
	}

	if strings.TrimSpace(bi.CompanyName) == "" {
		res.AddError("Missing required field: company_name")
	}
	tax := strings.TrimSpace(bi.TaxCode)
	if tax == "" {
		res.AddError("Missing required field: tax_code")
	} else if !validTaxCode(tax) {
		res.AddWarning("Tax code %q is not 10 digits or 10-3 digits", tax)
	}

	if bi.EstablishedDate != "" && !parsesAsDate(bi.EstablishedDate) {
		res.AddWarning("Unrecognized established date %q", bi.EstablishedDate)
	}
	return res
}

// validTaxCode accepts 10 digits, optionally followed by a 3 digit branch suffix.
func validTaxCode(s string) bool {
	main, branch, hasBranch := strings.Cut(s, "-")
	if len(main) != 10 || !allDigits(main) {
		return false
	}
	if hasBranch {
		return len(branch) == 3 && allDigits(branch)
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func parsesAsDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range establishedDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ValidateOwnership checks the ownership form. Shares must each lie in
// [0,100] and may not add up to more than 100.
func ValidateOwnership(own *domain.Ownership) domain.ValidationResult {
	res := domain.NewValidationResult()
	if own == nil || len(own.Owners) == 0 {
		res.AddError("At least one owner is required")
		return res
	}

	var total float64
	for i, o := range own.Owners {
		if strings.TrimSpace(o.Name) == "" {
			res.AddError("Owner %d: missing name", i+1)
		}
		if o.SharePercent < 0 || o.SharePercent > 100 {
			res.AddError("Owner %d: share %.2f%% is outside 0-100", i+1, o.SharePercent)
		}
		total += o.SharePercent
	}

	switch {
	case total > 100+shareTolerance:
		res.AddError("Total ownership %.2f%% exceeds 100%%", total)
	case math.Abs(total-100) > shareTolerance:
		res.AddWarning("Total ownership is %.2f%%, not 100%%", total)
	}
	return res
}
