// Package metrics folds an application's saved documents into one
// financial metrics record.
package metrics

import (
	"sort"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/parsing"
	"github.com/shopspring/decimal"
)

// ComputeFinancialMetrics derives totals and ratios from the documents keyed
// by category. It is pure: the same documents always produce the same record.
//
// Totals sum each section's closing balances, treating blanks as zero.
// current_ratio is set when liabilities are non-zero, debt_to_equity when
// equity is positive. Bank statement balances are passed through as parsed.
func ComputeFinancialMetrics(docs map[domain.DocumentCategory]domain.DocumentPayload) domain.FinancialMetrics {
	assets, liabilities, equity := decimal.Zero, decimal.Zero, decimal.Zero

	if fp := docs[domain.CategoryFinancialPerformance].FinancialPerformance; fp != nil {
		assets = closingTotal(fp.Assets)
		liabilities = closingTotal(fp.Liabilities)
		equity = closingTotal(fp.Equity)
	}

	m := domain.FinancialMetrics{
		TotalAssets:      assets.String(),
		TotalLiabilities: liabilities.String(),
		TotalEquity:      equity.String(),
		ExtractedData:    make(map[domain.DocumentCategory]domain.DocumentPayload, len(docs)),
	}

	if !liabilities.IsZero() {
		r := assets.Div(liabilities).StringFixed(2)
		m.CurrentRatio = &r
	}
	if equity.IsPositive() {
		r := liabilities.Div(equity).StringFixed(2)
		m.DebtToEquity = &r
	}

	if bs := docs[domain.CategoryBankStatements].BankStatement; bs != nil {
		m.OpeningBalance = bs.Summary.OpeningBalance
		m.ClosingBalance = bs.Summary.ClosingBalance
		m.TotalDebit = bs.Summary.TotalDebit
		m.TotalCredit = bs.Summary.TotalCredit
	}

	for cat, doc := range docs {
		m.ExtractedData[cat] = doc
	}

	return m
}

func closingTotal(section map[string]domain.Balance) decimal.Decimal {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := decimal.Zero
	for _, k := range keys {
		total = total.Add(parsing.ParseAmount(section[k].Closing))
	}
	return total
}
