package domain

// FinancialMetrics is the aggregated record computed from an application's
// saved documents. Ratios are nil when their denominator rules them out.
type FinancialMetrics struct {
	TotalAssets      string  `json:"total_assets"`
	TotalLiabilities string  `json:"total_liabilities"`
	TotalEquity      string  `json:"total_equity"`
	CurrentRatio     *string `json:"current_ratio"`
	DebtToEquity     *string `json:"debt_to_equity"`

	OpeningBalance string `json:"opening_balance,omitempty"`
	ClosingBalance string `json:"closing_balance,omitempty"`
	TotalDebit     string `json:"total_debit,omitempty"`
	TotalCredit    string `json:"total_credit,omitempty"`

	ExtractedData map[DocumentCategory]DocumentPayload `json:"extracted_data"`
}

// KeyFactors groups the positive and negative drivers named by the analysis.
type KeyFactors struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// AnalysisResult is the structured creditworthiness analysis returned by the
// generative AI service.
type AnalysisResult struct {
	OverallScore        float64            `json:"overall_score"`
	ScoreBreakdown      map[string]float64 `json:"score_breakdown"`
	KeyFactors          KeyFactors         `json:"key_factors"`
	Recommendations     []string           `json:"recommendations"`
	ApprovalProbability float64            `json:"approval_probability"`
}
