package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// ListProductsWithClient returns the loan product catalogue ordered by id.
func ListProductsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]*ProductRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			id,
			name,
			lender,
			min_amount,
			max_amount,
			interest_rate,
			max_term_months,
			purposes,
			description
		FROM %s
		ORDER BY id
	`, ds.Table(productsTable)))

	return readAll[ProductRow](ctx, q, "ListProducts")
}
