package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// UpsertMetricsWithClient replaces an application's financial_metrics row.
func UpsertMetricsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *MetricsRow) error {
	q := client.Query(fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @application_id AS application_id) S
		ON T.application_id = S.application_id
		WHEN MATCHED THEN
			UPDATE SET
				total_assets = @total_assets,
				total_liabilities = @total_liabilities,
				total_equity = @total_equity,
				metrics = @metrics,
				computed_ts = @computed_ts
		WHEN NOT MATCHED THEN
			INSERT (application_id, total_assets, total_liabilities, total_equity, metrics, computed_ts)
			VALUES (@application_id, @total_assets, @total_liabilities, @total_equity, @metrics, @computed_ts)
	`, ds.Table(metricsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "application_id", Value: row.ApplicationID},
		{Name: "total_assets", Value: row.TotalAssets},
		{Name: "total_liabilities", Value: row.TotalLiabilities},
		{Name: "total_equity", Value: row.TotalEquity},
		{Name: "metrics", Value: row.Metrics},
		{Name: "computed_ts", Value: row.ComputedTS},
	}

	_, err := runDML(ctx, q, "UpsertMetrics")
	return err
}

// GetMetricsWithClient returns the metrics row or domain.ErrNotFound.
func GetMetricsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, applicationID string) (*MetricsRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT application_id, total_assets, total_liabilities, total_equity, metrics, computed_ts
		FROM %s
		WHERE application_id = @application_id
		LIMIT 1
	`, ds.Table(metricsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "application_id", Value: applicationID}}

	return readOne[MetricsRow](ctx, q, "GetMetrics")
}
