// Package scoring computes the deterministic baseline credit score shown to
// borrowers before any document is analysed.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

const (
	minScore = 40
	maxScore = 95

	defaultRevenueScore = 60
	defaultTimeScore    = 60
	basePurposeScore    = 65

	// Used when the revenue bucket is not recognised.
	defaultEstimatedRevenue = 1e9

	revenueWeight = 0.4
	timeWeight    = 0.3
	purposeWeight = 0.2
	ratioWeight   = 0.1
)

var revenueScores = map[string]float64{
	domain.RevenueUnder1B: 50,
	domain.Revenue1To5B:   65,
	domain.Revenue5To10B:  78,
	domain.RevenueOver10B: 90,
}

var timeScores = map[string]float64{
	domain.TimeJustStarting: 45,
	domain.TimeLessOneYear:  58,
	domain.TimeOneToThree:   72,
	domain.TimeThreePlus:    85,
}

var purposeBonus = map[string]float64{
	domain.PurposeWorkingCapital:    10,
	domain.PurposePurchaseEquipment: 8,
	domain.PurposeBusinessExpansion: 12,
	domain.PurposeInventory:         7,
	domain.PurposeRealEstate:        6,
	domain.PurposeDebtConsolidation: 4,
	domain.PurposeStartNewBusiness:  -10,
}

// Bucket midpoints used to estimate absolute revenue.
var revenueMidpoints = map[string]float64{
	domain.RevenueUnder1B: 5e8,
	domain.Revenue1To5B:   3e9,
	domain.Revenue5To10B:  7.5e9,
	domain.RevenueOver10B: 1.5e10,
}

// Breakdown holds the weighted inputs of a baseline score.
type Breakdown struct {
	Revenue       float64
	Time          float64
	Purpose       float64
	Ratio         float64
	LoanToRevenue float64
}

// Components derives the four sub-scores for a loan form.
func Components(in domain.LoanFormInput) Breakdown {
	b := Breakdown{
		Revenue: lookup(revenueScores, in.AnnualRevenue, defaultRevenueScore),
		Time:    lookup(timeScores, in.TimeInBusiness, defaultTimeScore),
		Purpose: basePurposeScore + lookup(purposeBonus, in.LoanPurpose, 0),
	}

	estimated := lookup(revenueMidpoints, in.AnnualRevenue, defaultEstimatedRevenue)
	b.LoanToRevenue = in.LoanAmount / estimated

	switch {
	case b.LoanToRevenue < 0.5:
		b.Ratio = 70
	case b.LoanToRevenue <= 1.0:
		b.Ratio = 65
	default:
		b.Ratio = 57
	}
	return b
}

// CalculateBaselineScore returns a score in [40, 95] and a fixed-phrase
// explanation. It assumes the form already passed ValidateLoanForm.
func CalculateBaselineScore(in domain.LoanFormInput) domain.ScoreResult {
	b := Components(in)

	weighted := b.Revenue*revenueWeight + b.Time*timeWeight + b.Purpose*purposeWeight + b.Ratio*ratioWeight
	score := int(math.Round(weighted))
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	return domain.ScoreResult{
		Score:     score,
		Reasoning: reasoning(b, score),
	}
}

// ValidateLoanForm performs the checks required before scoring.
func ValidateLoanForm(in domain.LoanFormInput) error {
	var missing []string
	if strings.TrimSpace(in.LoanPurpose) == "" {
		missing = append(missing, "loanPurpose")
	}
	if strings.TrimSpace(in.AnnualRevenue) == "" {
		missing = append(missing, "annualRevenue")
	}
	if strings.TrimSpace(in.TimeInBusiness) == "" {
		missing = append(missing, "timeInBusiness")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s: %w", strings.Join(missing, ", "), domain.ErrIncompleteData)
	}
	if math.IsNaN(in.LoanAmount) || math.IsInf(in.LoanAmount, 0) || in.LoanAmount <= 0 {
		return fmt.Errorf("loanAmount must be a positive number: %w", domain.ErrMalformedInput)
	}
	return nil
}

func lookup(table map[string]float64, key string, def float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return def
}
