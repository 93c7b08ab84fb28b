package parsing

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

// Balance sheet header columns.
const (
	colItem        = "Item"
	colCode        = "Code"
	colCurrentYear = "Current Year"
	colPriorYear   = "Prior Year"
)

// Split applied to the single borrowings row.
var (
	shortTermDebtShare = decimal.RequireFromString("0.6")
	longTermDebtShare  = decimal.RequireFromString("0.4")
)

// lineSpec locates one source row: exact code first, then any label as a
// case-insensitive substring of the item text.
type lineSpec struct {
	code   string
	labels []string
}

type fieldSpec struct {
	field string
	line  lineSpec
}

var assetFields = []fieldSpec{
	{domain.FieldCash, lineSpec{"110", []string{"cash and cash equivalents"}}},
	{domain.FieldShortTermInvestments, lineSpec{"120", []string{"short-term financial investments", "short-term investments"}}},
	{domain.FieldAccountsReceivable, lineSpec{"130", []string{"short-term receivables", "accounts receivable"}}},
	{domain.FieldInventories, lineSpec{"140", []string{"inventories"}}},
	{domain.FieldOtherCurrentAssets, lineSpec{"150", []string{"other short-term assets", "other current assets"}}},
	{domain.FieldFixedAssets, lineSpec{"220", []string{"fixed assets"}}},
	{domain.FieldLongTermInvestments, lineSpec{"250", []string{"long-term financial investments", "long-term investments"}}},
}

var liabilityFields = []fieldSpec{
	{domain.FieldAccountsPayable, lineSpec{"311", []string{"short-term trade payables", "trade payables", "accounts payable"}}},
}

var equityFields = []fieldSpec{
	{domain.FieldCommonStock, lineSpec{"411", []string{"owner's contributed capital", "share capital", "common stock"}}},
	{domain.FieldRetainedEarnings, lineSpec{"421", []string{"undistributed earnings", "retained earnings"}}},
}

var borrowingsLine = lineSpec{"320", []string{"short-term borrowings", "borrowings"}}

var otherLiabilityLines = []lineSpec{
	{"319", []string{"other short-term payables", "other payables"}},
	{"313", []string{"taxes and amounts payable", "taxes payable"}},
	{"314", []string{"payables to employees", "employee payables"}},
}

var otherReserveLines = []lineSpec{
	{"418", []string{"reserves and other funds", "other funds"}},
	{"412", []string{"share premium"}},
	{"417", []string{"foreign exchange differences", "foreign-exchange differences"}},
}

// balanceSheet is the indexed view of an uploaded balance sheet.
type balanceSheet struct {
	rows                   [][]string
	item, code, cur, prior int
}

// find returns the first row matching line, or nil.
func (b *balanceSheet) find(line lineSpec) []string {
	if line.code != "" {
		for _, row := range b.rows {
			if cell(row, b.code) == line.code {
				return row
			}
		}
	}
	for _, row := range b.rows {
		label := normalizeLabel(cell(row, b.item))
		if label == "" {
			continue
		}
		for _, l := range line.labels {
			if strings.Contains(label, l) {
				return row
			}
		}
	}
	return nil
}

func (b *balanceSheet) balance(line lineSpec) domain.Balance {
	row := b.find(line)
	if row == nil {
		return domain.Balance{}
	}
	return domain.Balance{
		Opening: cellValue(cell(row, b.prior)),
		Closing: cellValue(cell(row, b.cur)),
	}
}

// sum adds the contributor rows column by column. It reports false when
// none of the contributors is present.
func (b *balanceSheet) sum(specs []lineSpec) (domain.Balance, bool) {
	opening, closing := decimal.Zero, decimal.Zero
	found := false
	for _, s := range specs {
		row := b.find(s)
		if row == nil {
			continue
		}
		found = true
		opening = opening.Add(ParseAmount(cell(row, b.prior)))
		closing = closing.Add(ParseAmount(cell(row, b.cur)))
	}
	if !found {
		return domain.Balance{}, false
	}
	return domain.Balance{Opening: opening.String(), Closing: closing.String()}, true
}

// splitBorrowings divides the borrowings row into short- and long-term debt.
func (b *balanceSheet) splitBorrowings() (short, long domain.Balance) {
	row := b.find(borrowingsLine)
	if row == nil {
		return domain.Balance{}, domain.Balance{}
	}
	short.Opening, long.Opening = splitDebt(cell(row, b.prior))
	short.Closing, long.Closing = splitDebt(cell(row, b.cur))
	return short, long
}

func splitDebt(raw string) (string, string) {
	if cleanNumber(raw) == "" {
		return "", ""
	}
	total := ParseAmount(raw)
	return total.Mul(shortTermDebtShare).Round(0).String(),
		total.Mul(longTermDebtShare).Round(0).String()
}

// normalizeLabel lowercases an item label and drops sub-item indentation.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "-") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseBalanceSheet maps a balance sheet table onto the financial
// performance schema. Missing rows leave empty balances; only a missing
// header or unreadable table is an error.
func ParseBalanceSheet(r io.Reader) (*domain.FinancialPerformanceRecord, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseBalanceSheet: %w", err)
	}
	return BalanceSheetFromTable(t)
}

// BalanceSheetFromTable is ParseBalanceSheet over an already loaded table.
func BalanceSheetFromTable(t *Table) (*domain.FinancialPerformanceRecord, error) {
	cols, err := t.Columns(colItem, colCode, colCurrentYear, colPriorYear)
	if err != nil {
		return nil, fmt.Errorf("ParseBalanceSheet: %w", err)
	}

	b := &balanceSheet{
		rows:  t.Rows,
		item:  cols[colItem],
		code:  cols[colCode],
		cur:   cols[colCurrentYear],
		prior: cols[colPriorYear],
	}

	rec := &domain.FinancialPerformanceRecord{
		Version:     domain.FinancialPerformanceVersion,
		Assets:      make(map[string]domain.Balance, len(assetFields)),
		Liabilities: make(map[string]domain.Balance, 4),
		Equity:      make(map[string]domain.Balance, 3),
	}

	for _, f := range assetFields {
		rec.Assets[f.field] = b.balance(f.line)
	}
	for _, f := range liabilityFields {
		rec.Liabilities[f.field] = b.balance(f.line)
	}
	for _, f := range equityFields {
		rec.Equity[f.field] = b.balance(f.line)
	}

	rec.Liabilities[domain.FieldShortTermDebt], rec.Liabilities[domain.FieldLongTermDebt] = b.splitBorrowings()

	rec.Liabilities[domain.FieldOtherLiabilities], _ = b.sum(otherLiabilityLines)
	rec.Equity[domain.FieldOtherReserves], _ = b.sum(otherReserveLines)

	return rec, nil
}
