package parsing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/shopspring/decimal"
)

const balancedSheet = `Item,Code,NoteRef,Current Year,Prior Year
TOTAL ASSETS,270,,"3,000,000","2,500,000"
Cash and cash equivalents,110,V.01,"500,000","400,000"
- Inventories,140,V.04,"700,000","600,000"
Fixed assets,220,V.08,"1,800,000","1,500,000"
Short-term trade payables,311,,"300,000","250,000"
Taxes payable,313,,"50,000","40,000"
Payables to employees,314,,"20,000",
Short-term borrowings,320,,"1,000,001","800,000"
Owner's contributed capital,411,,"1,000,000","1,000,000"
- Share premium,412,,"100,000","100,000"
Undistributed earnings,421,,"529,999","310,000"
`

func TestParseBalanceSheet(t *testing.T) {
	rec, err := ParseBalanceSheet(strings.NewReader(balancedSheet))
	if err != nil {
		t.Fatalf("ParseBalanceSheet() error = %v", err)
	}
	if rec.Version != domain.FinancialPerformanceVersion {
		t.Errorf("Version = %q, want %q", rec.Version, domain.FinancialPerformanceVersion)
	}

	tests := []struct {
		name    string
		section map[string]domain.Balance
		field   string
		want    domain.Balance
	}{
		{"cash", rec.Assets, domain.FieldCash, domain.Balance{Opening: "400000", Closing: "500000"}},
		{"indented inventories", rec.Assets, domain.FieldInventories, domain.Balance{Opening: "600000", Closing: "700000"}},
		{"fixed assets", rec.Assets, domain.FieldFixedAssets, domain.Balance{Opening: "1500000", Closing: "1800000"}},
		{"missing receivables", rec.Assets, domain.FieldAccountsReceivable, domain.Balance{}},
		{"accounts payable", rec.Liabilities, domain.FieldAccountsPayable, domain.Balance{Opening: "250000", Closing: "300000"}},
		{"short-term debt", rec.Liabilities, domain.FieldShortTermDebt, domain.Balance{Opening: "480000", Closing: "600001"}},
		{"long-term debt", rec.Liabilities, domain.FieldLongTermDebt, domain.Balance{Opening: "320000", Closing: "400000"}},
		{"other liabilities", rec.Liabilities, domain.FieldOtherLiabilities, domain.Balance{Opening: "40000", Closing: "70000"}},
		{"common stock", rec.Equity, domain.FieldCommonStock, domain.Balance{Opening: "1000000", Closing: "1000000"}},
		{"retained earnings", rec.Equity, domain.FieldRetainedEarnings, domain.Balance{Opening: "310000", Closing: "529999"}},
		{"other reserves", rec.Equity, domain.FieldOtherReserves, domain.Balance{Opening: "100000", Closing: "100000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.section[tt.field]
			if !ok {
				t.Fatalf("field %q not present", tt.field)
			}
			if got != tt.want {
				t.Errorf("%s = %+v, want %+v", tt.field, got, tt.want)
			}
		})
	}
}

func TestParseBalanceSheet_LabelFallback(t *testing.T) {
	csv := `Item,Code,NoteRef,Current Year,Prior Year
Cash and cash equivalents,,,"10","9"
  - Inventories,,,"5",""
Accounts payable,,,"7","6"
Short-term borrowings,,,"10","abc"
`
	rec, err := ParseBalanceSheet(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseBalanceSheet() error = %v", err)
	}

	if got := rec.Assets[domain.FieldCash]; got != (domain.Balance{Opening: "9", Closing: "10"}) {
		t.Errorf("cash = %+v", got)
	}
	if got := rec.Assets[domain.FieldInventories]; got != (domain.Balance{Opening: "", Closing: "5"}) {
		t.Errorf("inventories = %+v", got)
	}
	if got := rec.Liabilities[domain.FieldAccountsPayable]; got != (domain.Balance{Opening: "6", Closing: "7"}) {
		t.Errorf("accounts payable = %+v", got)
	}
	// Non-numeric borrowings split as zero.
	if got := rec.Liabilities[domain.FieldShortTermDebt]; got != (domain.Balance{Opening: "0", Closing: "6"}) {
		t.Errorf("short-term debt = %+v", got)
	}
	if got := rec.Liabilities[domain.FieldOtherLiabilities]; got != (domain.Balance{}) {
		t.Errorf("other liabilities = %+v, want empty when no contributor exists", got)
	}
}

func TestParseBalanceSheet_BorrowingsSplit(t *testing.T) {
	values := []int64{0, 1, 2, 5, 7, 999, 1000001, 123456789, 2840626515}

	for _, v := range values {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			csv := fmt.Sprintf("Item,Code,NoteRef,Current Year,Prior Year\nShort-term borrowings,320,,%d,%d\n", v, v)
			rec, err := ParseBalanceSheet(strings.NewReader(csv))
			if err != nil {
				t.Fatalf("ParseBalanceSheet() error = %v", err)
			}

			b := decimal.NewFromInt(v)
			want := b.Mul(decimal.RequireFromString("0.6")).Round(0).
				Add(b.Mul(decimal.RequireFromString("0.4")).Round(0))

			short := decimal.RequireFromString(rec.Liabilities[domain.FieldShortTermDebt].Closing)
			long := decimal.RequireFromString(rec.Liabilities[domain.FieldLongTermDebt].Closing)
			got := short.Add(long)

			if !got.Equal(want) {
				t.Errorf("short + long = %s, want %s", got, want)
			}
			if got.Sub(b).Abs().GreaterThan(decimal.NewFromInt(1)) {
				t.Errorf("short + long = %s, off from %s by more than 1", got, b)
			}
		})
	}
}

func TestParseBalanceSheet_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"wrong header", "Name,Value\nCash,10\n"},
		{"missing prior year", "Item,Code,NoteRef,Current Year\nCash,110,,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBalanceSheet(strings.NewReader(tt.csv))
			if !errors.Is(err, domain.ErrMalformedInput) {
				t.Errorf("ParseBalanceSheet() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestValidateBalanceSheet(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		rec, err := ParseBalanceSheet(strings.NewReader(balancedSheet))
		if err != nil {
			t.Fatalf("ParseBalanceSheet() error = %v", err)
		}
		res := ValidateBalanceSheet(rec)
		if !res.Valid || len(res.Errors) != 0 {
			t.Errorf("Valid = %v, errors = %v", res.Valid, res.Errors)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("warnings = %v, want none", res.Warnings)
		}
	})

	t.Run("imbalanced closing", func(t *testing.T) {
		rec, _ := ParseBalanceSheet(strings.NewReader(balancedSheet))
		rec.Assets[domain.FieldCash] = domain.Balance{Opening: "400000", Closing: "900000"}

		res := ValidateBalanceSheet(rec)
		if !res.Valid {
			t.Errorf("imbalance must not invalidate the sheet: %v", res.Errors)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "imbalance (closing)") {
			t.Errorf("warnings = %v, want one closing imbalance", res.Warnings)
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		rec, _ := ParseBalanceSheet(strings.NewReader(balancedSheet))
		// 3,020,000 vs 3,000,000 is 0.66% off.
		rec.Assets[domain.FieldCash] = domain.Balance{Opening: "400000", Closing: "520000"}

		res := ValidateBalanceSheet(rec)
		if len(res.Warnings) != 0 {
			t.Errorf("warnings = %v, want none", res.Warnings)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		rec := &domain.FinancialPerformanceRecord{
			Assets: map[string]domain.Balance{
				domain.FieldCash:        {Opening: "", Closing: "100"},
				domain.FieldInventories: {},
			},
			Liabilities: map[string]domain.Balance{},
			Equity:      map[string]domain.Balance{domain.FieldCommonStock: {Closing: "100"}},
		}

		res := ValidateBalanceSheet(rec)
		if res.Valid {
			t.Error("Valid = true, want false")
		}
		want := []string{
			"Missing required field: inventories",
			"Missing required field: fixed_assets",
			"Missing required field: accounts_payable",
		}
		if strings.Join(res.Errors, "|") != strings.Join(want, "|") {
			t.Errorf("errors = %v, want %v", res.Errors, want)
		}
	})

	t.Run("all zero sheet", func(t *testing.T) {
		rec := &domain.FinancialPerformanceRecord{
			Assets:      map[string]domain.Balance{domain.FieldCash: {Opening: "0", Closing: "0"}},
			Liabilities: map[string]domain.Balance{},
			Equity:      map[string]domain.Balance{},
		}

		res := ValidateBalanceSheet(rec)
		var insufficient int
		for _, w := range res.Warnings {
			if strings.Contains(w, "Insufficient data") {
				insufficient++
			}
		}
		if insufficient != 2 {
			t.Errorf("warnings = %v, want insufficient data for both columns", res.Warnings)
		}
	})
}
