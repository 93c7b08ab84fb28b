package domain

import "github.com/shopspring/decimal"

// BankStatementRow is one line of an uploaded bank statement.
// Amounts are parsed with thousands separators removed; blanks and
// non-numeric cells become zero.
type BankStatementRow struct {
	TransactionDate string          `json:"transaction_date"`
	Remitter        string          `json:"remitter"`
	RemitterBank    string          `json:"remitter_bank,omitempty"`
	Details         string          `json:"details"`
	TransactionNo   string          `json:"transaction_no,omitempty"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	Fee             decimal.Decimal `json:"fee"`
	Tax             decimal.Decimal `json:"tax"`
	Balance         decimal.Decimal `json:"balance"`
}

// BankStatementSummary is the aggregate view of a statement.
type BankStatementSummary struct {
	OpeningBalance   string `json:"opening_balance"`
	ClosingBalance   string `json:"closing_balance"`
	TotalDebit       string `json:"total_debit"`
	TotalCredit      string `json:"total_credit"`
	TransactionCount int    `json:"transaction_count"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
}

// Transaction categories, in the priority order used by the analyzer.
const (
	CategorySalaries  = "salaries"
	CategoryUtilities = "utilities"
	CategoryRent      = "rent"
	CategoryLoans     = "loans"
	CategoryTransfers = "transfers"
	CategoryOthers    = "others"
)

// CategoryTotals accumulates the rows bucketed into one category.
type CategoryTotals struct {
	Count       int    `json:"count"`
	TotalDebit  string `json:"total_debit"`
	TotalCredit string `json:"total_credit"`
}

// RemitterTotal is one entry of the top-remitters list.
type RemitterTotal struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Type   string `json:"type"` // "debit" or "credit"
}

// TransactionAnalysis is the category breakdown of a statement.
type TransactionAnalysis struct {
	Categories   map[string]CategoryTotals `json:"categories"`
	TopRemitters []RemitterTotal           `json:"top_remitters"`
}

// BankStatement is a parsed statement with its summary and analysis.
type BankStatement struct {
	Summary      BankStatementSummary `json:"summary"`
	Analysis     TransactionAnalysis  `json:"analysis"`
	Transactions []BankStatementRow   `json:"transactions,omitempty"`
}
