package metrics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

func sampleDocs() map[domain.DocumentCategory]domain.DocumentPayload {
	return map[domain.DocumentCategory]domain.DocumentPayload{
		domain.CategoryFinancialPerformance: {
			Category: domain.CategoryFinancialPerformance,
			Version:  domain.FinancialPerformanceVersion,
			FinancialPerformance: &domain.FinancialPerformanceRecord{
				Version: domain.FinancialPerformanceVersion,
				Assets: map[string]domain.Balance{
					domain.FieldCash:        {Opening: "100", Closing: "500"},
					domain.FieldInventories: {Opening: "", Closing: "1,000"},
					domain.FieldFixedAssets: {Opening: "1", Closing: ""},
				},
				Liabilities: map[string]domain.Balance{
					domain.FieldAccountsPayable: {Closing: "400"},
					domain.FieldShortTermDebt:   {Closing: "200"},
				},
				Equity: map[string]domain.Balance{
					domain.FieldCommonStock: {Closing: "900"},
				},
			},
		},
		domain.CategoryBankStatements: {
			Category: domain.CategoryBankStatements,
			Version:  domain.BankStatementVersion,
			BankStatement: &domain.BankStatement{
				Summary: domain.BankStatementSummary{
					OpeningBalance: "820000000",
					ClosingBalance: "2840626515",
					TotalDebit:     "321068974",
					TotalCredit:    "466793617",
				},
			},
		},
		domain.CategoryBusinessIdentity: {
			Category:         domain.CategoryBusinessIdentity,
			Version:          domain.BusinessIdentityVersion,
			BusinessIdentity: &domain.BusinessIdentity{CompanyName: "An Phat Co.", TaxCode: "0101234567"},
		},
	}
}

func TestComputeFinancialMetrics(t *testing.T) {
	m := ComputeFinancialMetrics(sampleDocs())

	if m.TotalAssets != "1500" || m.TotalLiabilities != "600" || m.TotalEquity != "900" {
		t.Errorf("totals = %s/%s/%s, want 1500/600/900", m.TotalAssets, m.TotalLiabilities, m.TotalEquity)
	}
	if m.CurrentRatio == nil || *m.CurrentRatio != "2.50" {
		t.Errorf("CurrentRatio = %v, want 2.50", m.CurrentRatio)
	}
	if m.DebtToEquity == nil || *m.DebtToEquity != "0.67" {
		t.Errorf("DebtToEquity = %v, want 0.67", m.DebtToEquity)
	}
	if m.OpeningBalance != "820000000" || m.ClosingBalance != "2840626515" ||
		m.TotalDebit != "321068974" || m.TotalCredit != "466793617" {
		t.Errorf("bank pass-through = %+v", m)
	}
	if len(m.ExtractedData) != 3 {
		t.Errorf("len(ExtractedData) = %d, want 3", len(m.ExtractedData))
	}
}

func TestComputeFinancialMetrics_RatioGuards(t *testing.T) {
	docs := map[domain.DocumentCategory]domain.DocumentPayload{
		domain.CategoryFinancialPerformance: {
			Category: domain.CategoryFinancialPerformance,
			FinancialPerformance: &domain.FinancialPerformanceRecord{
				Assets:      map[string]domain.Balance{domain.FieldCash: {Closing: "10"}},
				Liabilities: map[string]domain.Balance{},
				Equity:      map[string]domain.Balance{domain.FieldRetainedEarnings: {Closing: "-5"}},
			},
		},
	}

	m := ComputeFinancialMetrics(docs)
	if m.CurrentRatio != nil {
		t.Errorf("CurrentRatio = %v, want nil for zero liabilities", *m.CurrentRatio)
	}
	if m.DebtToEquity != nil {
		t.Errorf("DebtToEquity = %v, want nil for negative equity", *m.DebtToEquity)
	}
	if m.OpeningBalance != "" {
		t.Errorf("OpeningBalance = %q, want empty without a statement", m.OpeningBalance)
	}
}

func TestComputeFinancialMetrics_Empty(t *testing.T) {
	m := ComputeFinancialMetrics(nil)
	if m.TotalAssets != "0" || m.CurrentRatio != nil || m.DebtToEquity != nil {
		t.Errorf("ComputeFinancialMetrics(nil) = %+v", m)
	}
	if m.ExtractedData == nil {
		t.Error("ExtractedData = nil, want empty map")
	}
}

func TestComputeFinancialMetrics_Idempotent(t *testing.T) {
	first, err := json.Marshal(ComputeFinancialMetrics(sampleDocs()))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(ComputeFinancialMetrics(sampleDocs()))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}
