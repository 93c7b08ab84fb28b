package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/credit-assessor/internal/domain"
)

const applicationSelect = `
	SELECT
		id,
		user_id,
		applicant_type,
		cic_group,
		company_name,
		loan_amount,
		loan_purpose,
		annual_revenue,
		time_in_business,
		baseline_score,
		baseline_reasoning,
		status,
		created_ts,
		updated_ts
	FROM %s`

// InsertApplicationWithClient inserts a loan_applications row.
func InsertApplicationWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ApplicationRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			id, user_id, applicant_type, cic_group, company_name,
			loan_amount, loan_purpose, annual_revenue, time_in_business,
			baseline_score, baseline_reasoning, status, created_ts, updated_ts
		)
		VALUES (
			@id, @user_id, @applicant_type, @cic_group, @company_name,
			@loan_amount, @loan_purpose, @annual_revenue, @time_in_business,
			@baseline_score, @baseline_reasoning, @status, @created_ts, @updated_ts
		)
	`, ds.Table(applicationsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "user_id", Value: row.UserID},
		{Name: "applicant_type", Value: row.ApplicantType},
		{Name: "cic_group", Value: row.CICGroup},
		{Name: "company_name", Value: row.CompanyName},
		{Name: "loan_amount", Value: row.LoanAmount},
		{Name: "loan_purpose", Value: row.LoanPurpose},
		{Name: "annual_revenue", Value: row.AnnualRevenue},
		{Name: "time_in_business", Value: row.TimeInBiz},
		{Name: "baseline_score", Value: row.Score},
		{Name: "baseline_reasoning", Value: row.Reasoning},
		{Name: "status", Value: row.Status},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	_, err := runDML(ctx, q, "InsertApplication")
	return err
}

// GetApplicationWithClient returns one application or domain.ErrNotFound.
func GetApplicationWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*ApplicationRow, error) {
	q := client.Query(fmt.Sprintf(applicationSelect+`
		WHERE id = @id
		LIMIT 1
	`, ds.Table(applicationsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}

	return readOne[ApplicationRow](ctx, q, "GetApplication")
}

// ListApplicationsWithClient returns a user's applications, newest first.
func ListApplicationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*ApplicationRow, error) {
	q := client.Query(fmt.Sprintf(applicationSelect+`
		WHERE user_id = @user_id
		ORDER BY created_ts DESC, id
	`, ds.Table(applicationsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	return readAll[ApplicationRow](ctx, q, "ListApplications")
}

// UpdateApplicationStatusWithClient sets status and updated_ts.
func UpdateApplicationStatusWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id, status string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status, updated_ts = @updated_ts
		WHERE id = @id
	`, ds.Table(applicationsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "status", Value: status},
		{Name: "updated_ts", Value: time.Now().UTC()},
	}

	n, err := runDML(ctx, q, "UpdateApplicationStatus")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("UpdateApplicationStatus: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
