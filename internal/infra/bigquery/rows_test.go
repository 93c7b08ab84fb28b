package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

func TestDataset_Table(t *testing.T) {
	ds := Dataset{Project: "proj", Name: "credit"}
	if got := ds.Table(documentsTable); got != "`proj.credit.document_data`" {
		t.Errorf("Table() = %s", got)
	}
}

func TestStatementDate(t *testing.T) {
	tests := []struct {
		in        string
		wantValid bool
		want      civil.Date
	}{
		{"31/03/2024", true, civil.Date{Year: 2024, Month: time.March, Day: 31}},
		{"1/3/2024", true, civil.Date{Year: 2024, Month: time.March, Day: 1}},
		{"2024-03-05", true, civil.Date{Year: 2024, Month: time.March, Day: 5}},
		{"", false, civil.Date{}},
		{"March 2024", false, civil.Date{}},
	}
	for _, tt := range tests {
		got := statementDate(tt.in)
		if got.Valid != tt.wantValid || (tt.wantValid && got.Date != tt.want) {
			t.Errorf("statementDate(%q) = %+v, want %v valid=%v", tt.in, got, tt.want, tt.wantValid)
		}
	}
}

func TestApplicationRowRoundTrip(t *testing.T) {
	group := 3
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	app := &domain.LoanApplication{
		ID: "a1", UserID: "u1", ApplicantType: domain.ApplicantIndividual, CICGroup: &group,
		Form:      domain.LoanFormInput{LoanAmount: 5e7, LoanPurpose: domain.PurposeInventory, AnnualRevenue: domain.Revenue1To5B, TimeInBusiness: domain.TimeThreePlus},
		Score:     domain.ScoreResult{Score: 74, Reasoning: "ok"},
		Status:    domain.StatusSubmitted,
		CreatedAt: now,
	}

	row := applicationToRow(app)
	if !row.CICGroup.Valid || row.CICGroup.Int64 != 3 || row.UpdatedTS.Valid {
		t.Errorf("row = %+v", row)
	}

	back := row.toDomain()
	if back.CICGroup == nil || *back.CICGroup != 3 || back.Form != app.Form || back.Score != app.Score {
		t.Errorf("toDomain() = %+v", back)
	}
	if !back.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", back.UpdatedAt)
	}
}

func TestDocumentRow_StatementDates(t *testing.T) {
	rec := &domain.DocumentRecord{
		ID: "d1", ApplicationID: "a1", Category: domain.CategoryBankStatements,
		Payload: domain.DocumentPayload{
			Category: domain.CategoryBankStatements,
			Version:  domain.BankStatementVersion,
			BankStatement: &domain.BankStatement{Summary: domain.BankStatementSummary{
				OpeningBalance: "820000000", StartDate: "01/03/2024", EndDate: "not a date",
			}},
		},
		Validation: domain.NewValidationResult(),
	}

	row, err := documentToRow(rec)
	if err != nil {
		t.Fatalf("documentToRow() error = %v", err)
	}
	if !row.StatementStartDate.Valid || row.StatementEndDate.Valid {
		t.Errorf("dates = %+v / %+v", row.StatementStartDate, row.StatementEndDate)
	}
	if row.SchemaVersion != domain.BankStatementVersion {
		t.Errorf("SchemaVersion = %q", row.SchemaVersion)
	}

	back, err := row.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	if back.Payload.BankStatement == nil || back.Payload.BankStatement.Summary.OpeningBalance != "820000000" {
		t.Errorf("payload = %+v", back.Payload)
	}
}

func TestReportRow_NullResult(t *testing.T) {
	row, err := reportToRow(&domain.AnalysisReport{ID: "r1", Kind: domain.ReportMarkdown, Markdown: "## A"})
	if err != nil {
		t.Fatalf("reportToRow() error = %v", err)
	}
	if row.Result.Valid {
		t.Error("Result is valid for a markdown report")
	}
	back, err := row.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	if back.Result != nil || back.Markdown != "## A" {
		t.Errorf("toDomain() = %+v", back)
	}
}
