package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const reportSelect = `
	SELECT
		id,
		application_id,
		kind,
		model,
		result,
		markdown,
		sections,
		raw_response,
		published_url,
		created_ts
	FROM %s`

// UpsertReportWithClient inserts an analysis_reports row or updates its
// content when the id exists.
func UpsertReportWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ReportRow) error {
	q := client.Query(fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @id AS id) S
		ON T.id = S.id
		WHEN MATCHED THEN
			UPDATE SET
				result = @result,
				markdown = @markdown,
				sections = @sections,
				raw_response = @raw_response,
				published_url = @published_url
		WHEN NOT MATCHED THEN
			INSERT (id, application_id, kind, model, result, markdown, sections, raw_response, published_url, created_ts)
			VALUES (@id, @application_id, @kind, @model, @result, @markdown, @sections, @raw_response, @published_url, @created_ts)
	`, ds.Table(reportsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "application_id", Value: row.ApplicationID},
		{Name: "kind", Value: row.Kind},
		{Name: "model", Value: row.Model},
		{Name: "result", Value: row.Result},
		{Name: "markdown", Value: row.Markdown},
		{Name: "sections", Value: row.Sections},
		{Name: "raw_response", Value: row.RawResponse},
		{Name: "published_url", Value: row.PublishedURL},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	_, err := runDML(ctx, q, "UpsertReport")
	return err
}

// GetReportWithClient returns one report or domain.ErrNotFound.
func GetReportWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*ReportRow, error) {
	q := client.Query(fmt.Sprintf(reportSelect+`
		WHERE id = @id
		LIMIT 1
	`, ds.Table(reportsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}

	return readOne[ReportRow](ctx, q, "GetReport")
}

// ListReportsWithClient returns an application's reports, newest first.
func ListReportsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, applicationID string) ([]*ReportRow, error) {
	q := client.Query(fmt.Sprintf(reportSelect+`
		WHERE application_id = @application_id
		ORDER BY created_ts DESC
	`, ds.Table(reportsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "application_id", Value: applicationID}}

	return readAll[ReportRow](ctx, q, "ListReports")
}
