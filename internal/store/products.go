package store

import "github.com/dvloznov/credit-assessor/internal/domain"

// DefaultProducts is the catalogue seeded into new stores. The migrations
// seed the same rows.
func DefaultProducts() []domain.LoanProduct {
	return []domain.LoanProduct{
		{
			ID:            "sme-working-capital",
			Name:          "SME Working Capital Loan",
			Lender:        "Vietcombank",
			MinAmount:     50000000,
			MaxAmount:     5000000000,
			InterestRate:  8.5,
			MaxTermMonths: 12,
			Purposes:      []string{domain.PurposeWorkingCapital, domain.PurposeInventory},
			Description:   "Revolving credit line for day-to-day operating expenses.",
		},
		{
			ID:            "equipment-finance",
			Name:          "Equipment Finance",
			Lender:        "BIDV",
			MinAmount:     100000000,
			MaxAmount:     10000000000,
			InterestRate:  9.2,
			MaxTermMonths: 60,
			Purposes:      []string{domain.PurposePurchaseEquipment},
			Description:   "Term loan secured on the purchased machinery or vehicles.",
		},
		{
			ID:            "business-expansion",
			Name:          "Business Expansion Loan",
			Lender:        "Techcombank",
			MinAmount:     500000000,
			MaxAmount:     20000000000,
			InterestRate:  10.1,
			MaxTermMonths: 84,
			Purposes:      []string{domain.PurposeBusinessExpansion, domain.PurposeRealEstate},
			Description:   "Medium and long term funding for new branches, premises or capacity.",
		},
		{
			ID:            "debt-refinance",
			Name:          "Debt Consolidation Loan",
			Lender:        "VPBank",
			MinAmount:     100000000,
			MaxAmount:     3000000000,
			InterestRate:  11.0,
			MaxTermMonths: 36,
			Purposes:      []string{domain.PurposeDebtConsolidation},
			Description:   "Refinances existing short term borrowings into one instalment.",
		},
		{
			ID:            "startup-microloan",
			Name:          "Startup Microloan",
			Lender:        "Agribank",
			MinAmount:     20000000,
			MaxAmount:     500000000,
			InterestRate:  12.5,
			MaxTermMonths: 24,
			Purposes:      []string{domain.PurposeStartNewBusiness},
			Description:   "Small unsecured loan for businesses in their first year.",
		},
	}
}
