// Command sync-notion publishes stored reports of an application to the
// Notion reports database, creating or updating one page per report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/infra"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/notionsync"
)

func main() {
	log := logger.New()

	appID := flag.String("application-id", "", "Application whose reports are published (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - list reports without publishing")
	flag.Parse()

	if *appID == "" {
		log.Fatal().Msg("Error: --application-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if !cfg.NotionEnabled() && !*dryRun {
		log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_REPORTS_DB are required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infra.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	app, err := repo.GetApplication(ctx, *appID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load application")
	}
	reports, err := repo.ListReports(ctx, app.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list reports")
	}

	log.Info().
		Str("application_id", app.ID).
		Int("reports", len(reports)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	if *dryRun {
		for _, rep := range reports {
			fmt.Printf("%s  %-10s  %s\n", rep.ID, rep.Kind, rep.CreatedAt.Format(time.RFC3339))
		}
		return
	}

	publisher := notionsync.NewReportPublisher(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionReportsDB)
	failed := 0
	for _, rep := range reports {
		url, err := publisher.PublishReport(ctx, app, rep)
		if err != nil {
			failed++
			log.Error().Err(err).Str("report_id", rep.ID).Msg("Failed to publish report")
			continue
		}
		if url != rep.PublishedURL {
			rep.PublishedURL = url
			if err := repo.SaveReport(ctx, rep); err != nil {
				log.Warn().Err(err).Str("report_id", rep.ID).Msg("Failed to store published URL")
			}
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Sync finished with errors")
		os.Exit(1)
	}
	fmt.Println("Sync completed successfully.")
}
