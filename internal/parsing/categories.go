package parsing

import (
	"sort"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

const topRemitterLimit = 5

// Keyword rules in priority order. The first rule with a keyword found in
// the details text wins.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{domain.CategorySalaries, []string{"salary", "payroll"}},
	{domain.CategoryUtilities, []string{"utility", "utilities", "electric", "water", "internet"}},
	{domain.CategoryRent, []string{"rent"}},
	{domain.CategoryLoans, []string{"loan"}},
	{domain.CategoryTransfers, []string{"transfer", "incoming", "outgoing"}},
}

// Categorize buckets a details string into a transaction category.
func Categorize(details string) string {
	text := strings.ToLower(details)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryOthers
}

type categoryAcc struct {
	count         int
	debit, credit decimal.Decimal
}

type remitterAcc struct {
	amount decimal.Decimal
	kind   string
}

// AnalyzeTransactions sums rows per category and ranks remitters by total
// amount. Pass only non-marker rows. Every category is present in the
// result, zero-valued when unused.
func AnalyzeTransactions(rows []domain.BankStatementRow) domain.TransactionAnalysis {
	cats := make(map[string]*categoryAcc, len(categoryRules)+1)
	for _, rule := range categoryRules {
		cats[rule.category] = &categoryAcc{debit: decimal.Zero, credit: decimal.Zero}
	}
	cats[domain.CategoryOthers] = &categoryAcc{debit: decimal.Zero, credit: decimal.Zero}

	remitters := make(map[string]*remitterAcc)

	for _, row := range rows {
		acc := cats[Categorize(row.Details)]
		acc.count++
		acc.debit = acc.debit.Add(row.Debit)
		acc.credit = acc.credit.Add(row.Credit)

		if !row.Debit.IsPositive() && !row.Credit.IsPositive() {
			continue
		}
		name := strings.TrimSpace(row.Remitter)
		if name == "" {
			name = "Unknown"
		}
		r, ok := remitters[name]
		if !ok {
			r = &remitterAcc{amount: decimal.Zero}
			remitters[name] = r
		}
		// The last non-zero side seen decides the recorded direction.
		if row.Debit.IsPositive() {
			r.amount = r.amount.Add(row.Debit)
			r.kind = "debit"
		}
		if row.Credit.IsPositive() {
			r.amount = r.amount.Add(row.Credit)
			r.kind = "credit"
		}
	}

	out := domain.TransactionAnalysis{
		Categories:   make(map[string]domain.CategoryTotals, len(cats)),
		TopRemitters: make([]domain.RemitterTotal, 0, topRemitterLimit),
	}
	for name, acc := range cats {
		out.Categories[name] = domain.CategoryTotals{
			Count:       acc.count,
			TotalDebit:  acc.debit.String(),
			TotalCredit: acc.credit.String(),
		}
	}

	names := make([]string, 0, len(remitters))
	for name := range remitters {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := remitters[names[i]].amount, remitters[names[j]].amount
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return names[i] < names[j]
	})
	if len(names) > topRemitterLimit {
		names = names[:topRemitterLimit]
	}
	for _, name := range names {
		r := remitters[name]
		out.TopRemitters = append(out.TopRemitters, domain.RemitterTotal{
			Name:   name,
			Amount: r.amount.String(),
			Type:   r.kind,
		})
	}

	return out
}
