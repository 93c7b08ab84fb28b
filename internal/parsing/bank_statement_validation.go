package parsing

import (
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	closingToleranceRate  = decimal.RequireFromString("0.01")
	closingToleranceFloor = decimal.NewFromInt(100000)
)

// ValidateBankStatement checks a statement summary. Missing or zero opening
// and closing balances are errors; everything else is a warning.
func ValidateBankStatement(sum domain.BankStatementSummary) domain.ValidationResult {
	res := domain.NewValidationResult()

	openingMissing := isZeroOrEmpty(sum.OpeningBalance)
	closingMissing := isZeroOrEmpty(sum.ClosingBalance)
	if openingMissing {
		res.AddError("Opening balance is missing or zero")
	}
	if closingMissing {
		res.AddError("Closing balance is missing or zero")
	}

	if isZeroOrEmpty(sum.TotalDebit) {
		res.AddWarning("No debit transactions found")
	}
	if isZeroOrEmpty(sum.TotalCredit) {
		res.AddWarning("No credit transactions found")
	}
	if sum.TransactionCount == 0 {
		res.AddWarning("Statement contains no transactions")
	}

	switch {
	case sum.StartDate == "" || sum.EndDate == "":
		res.AddWarning("Statement period is incomplete: start or end date missing")
	case sum.StartDate == sum.EndDate:
		res.AddWarning("Statement covers a single day (%s)", sum.StartDate)
	}

	if !openingMissing && !closingMissing {
		opening := ParseAmount(sum.OpeningBalance)
		closing := ParseAmount(sum.ClosingBalance)
		computed := opening.Add(ParseAmount(sum.TotalCredit)).Sub(ParseAmount(sum.TotalDebit))

		tolerance := decimal.Max(closing.Abs().Mul(closingToleranceRate), closingToleranceFloor)
		if diff := closing.Sub(computed).Abs(); diff.GreaterThan(tolerance) {
			res.AddWarning("Balance verification warning: computed closing balance %s differs from reported %s by %s",
				computed.String(), closing.String(), diff.String())
		}
	}

	return res
}

func isZeroOrEmpty(s string) bool {
	return cleanNumber(s) == "" || ParseAmount(s).IsZero()
}
