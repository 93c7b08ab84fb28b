package scoring

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

var (
	revenueBuckets = []string{domain.RevenueUnder1B, domain.Revenue1To5B, domain.Revenue5To10B, domain.RevenueOver10B}
	timeBuckets    = []string{domain.TimeJustStarting, domain.TimeLessOneYear, domain.TimeOneToThree, domain.TimeThreePlus}
	purposes       = []string{
		domain.PurposeWorkingCapital, domain.PurposePurchaseEquipment, domain.PurposeBusinessExpansion,
		domain.PurposeInventory, domain.PurposeRealEstate, domain.PurposeDebtConsolidation,
		domain.PurposeStartNewBusiness, "something-else",
	}
	loanAmounts = []float64{1, 5e7, 2.5e8, 1.5e9, 3e9, 1e10, 1e12}
)

func TestCalculateBaselineScore_Scenario(t *testing.T) {
	in := domain.LoanFormInput{
		LoanAmount:     50000000,
		LoanPurpose:    domain.PurposeWorkingCapital,
		AnnualRevenue:  domain.Revenue1To5B,
		TimeInBusiness: domain.TimeOneToThree,
	}

	b := Components(in)
	if b.Revenue != 65 || b.Time != 72 || b.Purpose != 75 || b.Ratio != 70 {
		t.Errorf("Components() = %+v, want revenue 65, time 72, purpose 75, ratio 70", b)
	}

	got := CalculateBaselineScore(in)
	if got.Score != 70 {
		t.Errorf("Score = %d, want 70", got.Score)
	}
	if !strings.Contains(got.Reasoning, "fair") {
		t.Errorf("Reasoning = %q, want the fair band closing sentence", got.Reasoning)
	}
}

func TestComponents_RatioBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   float64
	}{
		{"below half", 1499999999, 70},
		{"exactly half", 1.5e9, 65},
		{"exactly one", 3e9, 65},
		{"above one", 3000000001, 57},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Components(domain.LoanFormInput{
				LoanAmount:     tt.amount,
				LoanPurpose:    domain.PurposeInventory,
				AnnualRevenue:  domain.Revenue1To5B,
				TimeInBusiness: domain.TimeThreePlus,
			})
			if b.Ratio != tt.want {
				t.Errorf("Ratio = %v (loan/revenue %v), want %v", b.Ratio, b.LoanToRevenue, tt.want)
			}
		})
	}
}

func TestComponents_Defaults(t *testing.T) {
	b := Components(domain.LoanFormInput{
		LoanAmount:     1e8,
		LoanPurpose:    "holiday",
		AnnualRevenue:  "unknown",
		TimeInBusiness: "forever",
	})
	if b.Revenue != 60 || b.Time != 60 || b.Purpose != 65 {
		t.Errorf("Components() = %+v, want defaults 60/60/65", b)
	}
	if b.LoanToRevenue != 0.1 {
		t.Errorf("LoanToRevenue = %v, want 0.1", b.LoanToRevenue)
	}
}

func TestCalculateBaselineScore_RangeAndPurity(t *testing.T) {
	for _, rev := range revenueBuckets {
		for _, tib := range timeBuckets {
			for _, p := range purposes {
				for _, amt := range loanAmounts {
					in := domain.LoanFormInput{LoanAmount: amt, LoanPurpose: p, AnnualRevenue: rev, TimeInBusiness: tib}

					first := CalculateBaselineScore(in)
					second := CalculateBaselineScore(in)
					if first != second {
						t.Fatalf("CalculateBaselineScore(%+v) not deterministic: %+v vs %+v", in, first, second)
					}
					if first.Score < 40 || first.Score > 95 {
						t.Errorf("CalculateBaselineScore(%+v) = %d, outside [40, 95]", in, first.Score)
					}
					if first.Reasoning == "" {
						t.Errorf("CalculateBaselineScore(%+v) has empty reasoning", in)
					}
				}
			}
		}
	}
}

func TestCalculateBaselineScore_RevenueMonotonic(t *testing.T) {
	for _, tib := range timeBuckets {
		for _, p := range purposes {
			for _, amt := range loanAmounts {
				prevComponent := math.Inf(-1)
				prevScore := 0
				for _, rev := range revenueBuckets {
					in := domain.LoanFormInput{LoanAmount: amt, LoanPurpose: p, AnnualRevenue: rev, TimeInBusiness: tib}

					b := Components(in)
					if b.Revenue < prevComponent {
						t.Errorf("revenue score dropped to %v at %s", b.Revenue, rev)
					}
					prevComponent = b.Revenue

					s := CalculateBaselineScore(in).Score
					if s < prevScore {
						t.Errorf("score dropped to %d at %s for %+v", s, rev, in)
					}
					prevScore = s
				}
			}
		}
	}
}

func TestValidateLoanForm(t *testing.T) {
	valid := domain.LoanFormInput{
		LoanAmount:     1e8,
		LoanPurpose:    domain.PurposeInventory,
		AnnualRevenue:  domain.Revenue1To5B,
		TimeInBusiness: domain.TimeThreePlus,
	}

	tests := []struct {
		name    string
		mutate  func(*domain.LoanFormInput)
		wantErr error
	}{
		{"valid", func(*domain.LoanFormInput) {}, nil},
		{"zero amount", func(in *domain.LoanFormInput) { in.LoanAmount = 0 }, domain.ErrMalformedInput},
		{"negative amount", func(in *domain.LoanFormInput) { in.LoanAmount = -5 }, domain.ErrMalformedInput},
		{"NaN amount", func(in *domain.LoanFormInput) { in.LoanAmount = math.NaN() }, domain.ErrMalformedInput},
		{"missing purpose", func(in *domain.LoanFormInput) { in.LoanPurpose = " " }, domain.ErrIncompleteData},
		{"missing revenue", func(in *domain.LoanFormInput) { in.AnnualRevenue = "" }, domain.ErrIncompleteData},
		{"missing time", func(in *domain.LoanFormInput) { in.TimeInBusiness = "" }, domain.ErrIncompleteData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := ValidateLoanForm(in)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateLoanForm() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateLoanForm() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
