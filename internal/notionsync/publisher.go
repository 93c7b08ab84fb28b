// Package notionsync publishes generated credit reports to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/logger"
)

// ReportPublisher writes one page per report into a Notion database.
// Re-publishing a report updates its existing page.
type ReportPublisher struct {
	client     NotionService
	databaseID string
}

// NewReportPublisher creates a publisher for the given reports database.
func NewReportPublisher(client NotionService, databaseID string) *ReportPublisher {
	return &ReportPublisher{client: client, databaseID: databaseID}
}

// PublishReport creates or updates the report's page and returns its URL.
func (p *ReportPublisher) PublishReport(ctx context.Context, app *domain.LoanApplication, rep *domain.AnalysisReport) (string, error) {
	log := logger.FromContext(ctx)
	props := ReportToNotionProperties(app, rep)

	existing, err := p.findPage(ctx, rep.ID)
	if err != nil {
		return "", fmt.Errorf("PublishReport: %w", err)
	}

	if existing != nil {
		page, err := p.client.UpdatePage(ctx, string(existing.ID), props)
		if err != nil {
			return "", fmt.Errorf("PublishReport: %w", err)
		}
		log.Info().Str("report_id", rep.ID).Str("page_id", string(page.ID)).Msg("Updated Notion report page")
		return page.URL, nil
	}

	page, err := p.client.CreatePage(ctx, p.databaseID, props, ReportToBlocks(rep))
	if err != nil {
		return "", fmt.Errorf("PublishReport: %w", err)
	}
	log.Info().Str("report_id", rep.ID).Str("page_id", string(page.ID)).Msg("Created Notion report page")
	return page.URL, nil
}

// findPage returns the page already holding reportID, or nil.
func (p *ReportPublisher) findPage(ctx context.Context, reportID string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: propReportID,
			RichText: &notionapi.TextFilterCondition{Equals: reportID},
		},
		PageSize: 10,
	}
	resp, err := p.client.QueryDatabase(ctx, p.databaseID, req)
	if err != nil {
		return nil, fmt.Errorf("findPage: %w", err)
	}
	for i := range resp.Results {
		if extractReportID(resp.Results[i]) == reportID {
			return &resp.Results[i], nil
		}
	}
	return nil, nil
}
