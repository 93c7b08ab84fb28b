package scoring

import "strings"

func reasoning(b Breakdown, score int) string {
	parts := make([]string, 0, 5)

	switch {
	case b.Revenue >= 78:
		parts = append(parts, "The business reports strong annual revenue, which supports repayment capacity.")
	case b.Revenue >= 65:
		parts = append(parts, "Annual revenue is moderate and provides a reasonable base for repayment.")
	default:
		parts = append(parts, "Annual revenue is limited, which constrains borrowing capacity.")
	}

	switch {
	case b.Time >= 72:
		parts = append(parts, "An established operating history lowers the risk profile.")
	case b.Time >= 58:
		parts = append(parts, "The business has some operating history, though a longer track record would strengthen the application.")
	default:
		parts = append(parts, "As an early-stage business, the limited operating history increases risk.")
	}

	switch {
	case b.Purpose >= 75:
		parts = append(parts, "The loan purpose is productive and well suited to business financing.")
	case b.Purpose >= 65:
		parts = append(parts, "The loan purpose is acceptable to most lenders.")
	default:
		parts = append(parts, "The loan purpose carries elevated risk for lenders.")
	}

	switch {
	case b.LoanToRevenue < 0.5:
		parts = append(parts, "The requested amount is conservative relative to estimated revenue.")
	case b.LoanToRevenue <= 1.0:
		parts = append(parts, "The requested amount is significant relative to estimated revenue.")
	default:
		parts = append(parts, "The requested amount exceeds estimated annual revenue, which raises affordability concerns.")
	}

	switch {
	case score >= 85:
		parts = append(parts, "Overall the profile is excellent and approval is highly likely.")
	case score >= 75:
		parts = append(parts, "Overall the profile is good and should qualify with most lenders.")
	case score >= 65:
		parts = append(parts, "Overall the profile is fair and approval on standard terms is likely.")
	case score >= 55:
		parts = append(parts, "Overall the profile is moderate and some lenders may ask for additional documentation.")
	default:
		parts = append(parts, "Overall the profile is weak; a smaller amount or added collateral would improve the chances of approval.")
	}

	return strings.Join(parts, " ")
}
