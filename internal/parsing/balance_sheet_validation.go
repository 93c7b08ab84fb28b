package parsing

import (
	"sort"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

// Fields that must carry at least one balance for the sheet to be usable.
var requiredBalanceSheetFields = []struct {
	section string
	field   string
}{
	{"assets", domain.FieldCash},
	{"assets", domain.FieldInventories},
	{"assets", domain.FieldFixedAssets},
	{"liabilities", domain.FieldAccountsPayable},
	{"equity", domain.FieldCommonStock},
}

var balanceTolerance = decimal.RequireFromString("0.01")

// ValidateBalanceSheet checks required fields and the accounting equation.
// Missing required fields are errors; an imbalance above 1% of total assets
// is a warning. A column whose assets total is zero cannot be checked and
// is reported as insufficient data.
func ValidateBalanceSheet(rec *domain.FinancialPerformanceRecord) domain.ValidationResult {
	res := domain.NewValidationResult()
	if rec == nil {
		res.AddError("balance sheet is empty")
		return res
	}

	sections := map[string]map[string]domain.Balance{
		"assets":      rec.Assets,
		"liabilities": rec.Liabilities,
		"equity":      rec.Equity,
	}
	for _, req := range requiredBalanceSheetFields {
		b := sections[req.section][req.field]
		if b.Opening == "" && b.Closing == "" {
			res.AddError("Missing required field: %s", req.field)
		}
	}

	assets := sectionTotals(rec.Assets)
	liabilities := sectionTotals(rec.Liabilities)
	equity := sectionTotals(rec.Equity)

	checkEquation(&res, "opening", assets.opening, liabilities.opening.Add(equity.opening))
	checkEquation(&res, "closing", assets.closing, liabilities.closing.Add(equity.closing))

	return res
}

func checkEquation(res *domain.ValidationResult, column string, assets, claims decimal.Decimal) {
	if assets.IsZero() {
		res.AddWarning("Insufficient data to verify balance sheet (%s): total assets is 0", column)
		return
	}
	diff := assets.Sub(claims).Abs()
	if diff.Div(assets.Abs()).GreaterThan(balanceTolerance) {
		res.AddWarning("Balance sheet imbalance (%s): total assets %s, liabilities + equity %s",
			column, assets.String(), claims.String())
	}
}

type columnTotals struct {
	opening decimal.Decimal
	closing decimal.Decimal
}

// sectionTotals sums a section in key order so results do not depend on
// map iteration.
func sectionTotals(section map[string]domain.Balance) columnTotals {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := columnTotals{opening: decimal.Zero, closing: decimal.Zero}
	for _, k := range keys {
		t.opening = t.opening.Add(ParseAmount(section[k].Opening))
		t.closing = t.closing.Add(ParseAmount(section[k].Closing))
	}
	return t
}
