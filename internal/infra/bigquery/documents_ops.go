package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// UpsertDocumentWithClient replaces the document_data row for the row's
// application and category, inserting it when absent.
func UpsertDocumentWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *DocumentDataRow) error {
	q := client.Query(fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @application_id AS application_id, @category AS category) S
		ON T.application_id = S.application_id AND T.category = S.category
		WHEN MATCHED THEN
			UPDATE SET
				id = @id,
				schema_version = @schema_version,
				payload = @payload,
				validation = @validation,
				source_uri = @source_uri,
				file_name = @file_name,
				statement_start_date = @statement_start_date,
				statement_end_date = @statement_end_date,
				updated_ts = @updated_ts
		WHEN NOT MATCHED THEN
			INSERT (
				id, application_id, category, schema_version, payload, validation,
				source_uri, file_name, statement_start_date, statement_end_date, updated_ts
			)
			VALUES (
				@id, @application_id, @category, @schema_version, @payload, @validation,
				@source_uri, @file_name, @statement_start_date, @statement_end_date, @updated_ts
			)
	`, ds.Table(documentsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "application_id", Value: row.ApplicationID},
		{Name: "category", Value: row.Category},
		{Name: "schema_version", Value: row.SchemaVersion},
		{Name: "payload", Value: row.Payload},
		{Name: "validation", Value: row.Validation},
		{Name: "source_uri", Value: row.SourceURI},
		{Name: "file_name", Value: row.FileName},
		{Name: "statement_start_date", Value: row.StatementStartDate},
		{Name: "statement_end_date", Value: row.StatementEndDate},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	_, err := runDML(ctx, q, "UpsertDocument")
	return err
}

// ListDocumentsWithClient returns an application's documents ordered by category.
func ListDocumentsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, applicationID string) ([]*DocumentDataRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			id,
			application_id,
			category,
			schema_version,
			payload,
			validation,
			source_uri,
			file_name,
			statement_start_date,
			statement_end_date,
			updated_ts
		FROM %s
		WHERE application_id = @application_id
		ORDER BY category
	`, ds.Table(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "application_id", Value: applicationID}}

	return readAll[DocumentDataRow](ctx, q, "ListDocuments")
}
