package parsing

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

// Bank statement header columns.
const (
	colTxDate       = "Transaction date"
	colRemitter     = "Remitter"
	colRemitterBank = "Remitter bank"
	colDetails      = "Details"
	colTxNo         = "Transaction No."
	colDebit        = "Debit"
	colCredit       = "Credit"
	colFee          = "Fee/Interest"
	colTax          = "Tax"
	colBalance      = "Balance"
)

// ParseBankStatement reads a bank statement export in a single pass and
// returns its summary, category analysis and the non-marker rows.
func ParseBankStatement(r io.Reader) (*domain.BankStatement, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseBankStatement: %w", err)
	}
	return BankStatementFromTable(t)
}

// BankStatementFromTable is ParseBankStatement over an already loaded table.
//
// The first row, or any row mentioning "opening", sets the opening balance
// and start date. A row mentioning "ending" or "closing" sets the closing
// balance; without one the last row's balance is used. Marker rows are left
// out of totals, counts and the analysis.
func BankStatementFromTable(t *Table) (*domain.BankStatement, error) {
	cols, err := t.Columns(colTxDate, colRemitter, colDetails, colDebit, colCredit, colBalance)
	if err != nil {
		return nil, fmt.Errorf("ParseBankStatement: %w", err)
	}
	bankCol := t.OptionalColumn(colRemitterBank)
	txNoCol := t.OptionalColumn(colTxNo)
	feeCol := t.OptionalColumn(colFee)
	taxCol := t.OptionalColumn(colTax)

	var (
		sum          domain.BankStatementSummary
		totalDebit   = decimal.Zero
		totalCredit  = decimal.Zero
		closingFound bool
		lastBalance  string
		txs          = make([]domain.BankStatementRow, 0, len(t.Rows))
	)

	for i, raw := range t.Rows {
		row := domain.BankStatementRow{
			TransactionDate: cell(raw, cols[colTxDate]),
			Remitter:        cell(raw, cols[colRemitter]),
			RemitterBank:    cell(raw, bankCol),
			Details:         cell(raw, cols[colDetails]),
			TransactionNo:   cell(raw, txNoCol),
			Debit:           ParseAmount(cell(raw, cols[colDebit])),
			Credit:          ParseAmount(cell(raw, cols[colCredit])),
			Fee:             ParseAmount(cell(raw, feeCol)),
			Tax:             ParseAmount(cell(raw, taxCol)),
			Balance:         ParseAmount(cell(raw, cols[colBalance])),
		}
		balance := row.Balance.String()
		lastBalance = balance

		opening, closing := markers(row)

		if i == 0 || opening {
			sum.OpeningBalance = balance
			sum.StartDate = row.TransactionDate
		}
		if closing {
			sum.ClosingBalance = balance
			closingFound = true
		}
		if opening || closing {
			continue
		}

		// A row with both sides set counts twice.
		if row.Debit.IsPositive() {
			totalDebit = totalDebit.Add(row.Debit)
			sum.TransactionCount++
		}
		if row.Credit.IsPositive() {
			totalCredit = totalCredit.Add(row.Credit)
			sum.TransactionCount++
		}
		if row.TransactionDate != "" {
			sum.EndDate = row.TransactionDate
		}
		txs = append(txs, row)
	}

	if !closingFound {
		sum.ClosingBalance = lastBalance
	}
	sum.TotalDebit = totalDebit.String()
	sum.TotalCredit = totalCredit.String()

	return &domain.BankStatement{
		Summary:      sum,
		Analysis:     AnalyzeTransactions(txs),
		Transactions: txs,
	}, nil
}

// markers reports whether a row is the opening or closing balance line.
func markers(row domain.BankStatementRow) (opening, closing bool) {
	text := strings.ToLower(row.Details + " " + row.Remitter)
	opening = strings.Contains(text, "opening")
	closing = strings.Contains(text, "ending") || strings.Contains(text, "closing")
	return opening, closing
}
