package domain

// Annual revenue buckets accepted by the loan form.
const (
	RevenueUnder1B = "under-1b"
	Revenue1To5B   = "1b-5b"
	Revenue5To10B  = "5b-10b"
	RevenueOver10B = "over-10b"
)

// Time-in-business buckets accepted by the loan form.
const (
	TimeJustStarting = "just-starting"
	TimeLessOneYear  = "less-1-year"
	TimeOneToThree   = "1-3-years"
	TimeThreePlus    = "3-plus-years"
)

// Loan purposes known to the scoring tables. Unknown purposes are accepted
// and scored with a zero bonus.
const (
	PurposeWorkingCapital    = "working-capital"
	PurposePurchaseEquipment = "purchase-equipment"
	PurposeBusinessExpansion = "business-expansion"
	PurposeInventory         = "inventory"
	PurposeRealEstate        = "real-estate"
	PurposeDebtConsolidation = "debt-consolidation"
	PurposeStartNewBusiness  = "start-new-business"
)

// Applicant types. Both are scored from the loan form; the CIC group of an
// individual applicant is stored as metadata only.
const (
	ApplicantSME        = "sme"
	ApplicantIndividual = "individual"
)

// LoanFormInput is the data a borrower enters on the loan form.
type LoanFormInput struct {
	LoanAmount     float64 `json:"loanAmount"`
	LoanPurpose    string  `json:"loanPurpose"`
	AnnualRevenue  string  `json:"annualRevenue"`
	TimeInBusiness string  `json:"timeInBusiness"`
}

// ScoreResult is the output of the baseline scoring engine.
type ScoreResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// LoanProduct is an entry in the lender product catalogue.
type LoanProduct struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Lender        string   `json:"lender"`
	MinAmount     float64  `json:"min_amount"`
	MaxAmount     float64  `json:"max_amount"`
	InterestRate  float64  `json:"interest_rate"`
	MaxTermMonths int      `json:"max_term_months"`
	Purposes      []string `json:"purposes"`
	Description   string   `json:"description"`
}
