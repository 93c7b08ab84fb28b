// Command worker generates reports for a batch of applications outside the
// API server, using the same job queue and handler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/infra"
	"github.com/dvloznov/credit-assessor/internal/jobs"
	"github.com/dvloznov/credit-assessor/internal/jobs/inmemory"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/notionsync"
)

func main() {
	appIDs := flag.String("application-ids", "", "Comma-separated application IDs (required)")
	kind := flag.String("kind", domain.ReportMarkdown, "Report kind: markdown or structured")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ids := splitIDs(*appIDs)
	if len(ids) == 0 {
		log.Fatal().Msg("Error: --application-ids is required")
	}
	if *kind != domain.ReportMarkdown && *kind != domain.ReportStructured {
		log.Fatal().Str("kind", *kind).Msg("Error: --kind must be markdown or structured")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	repo, err := infra.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	gateway, err := analysis.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini gateway")
	}

	handler := &jobs.ReportHandler{
		Repo:     repo,
		Analyzer: analysis.NewAnalyzer(gateway, 0),
		Model:    gateway.Model(),
	}
	if cfg.NotionEnabled() {
		handler.Publisher = notionsync.NewReportPublisher(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionReportsDB)
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(ids), cfg.JobWorkers, jobStore)

	done := make(chan string, len(ids))
	if err := jobQueue.Start(ctx, func(ctx context.Context, job *jobs.ReportJob) error {
		err := handler.Handle(ctx, job)
		if err == nil || !jobs.Retryable(err) || job.RetryCount >= job.MaxRetries {
			done <- job.JobID
		}
		return err
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	for _, id := range ids {
		job := &jobs.ReportJob{
			ApplicationID: id,
			Kind:          *kind,
			ReportID:      uuid.New().String(),
			MaxRetries:    jobs.MaxRetries,
		}
		if err := jobQueue.PublishReport(ctx, job); err != nil {
			log.Fatal().Err(err).Str("application_id", id).Msg("Failed to enqueue report job")
		}
	}
	log.Info().Int("jobs", len(ids)).Str("kind", *kind).Msg("Report jobs enqueued")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for remaining := len(ids); remaining > 0; remaining-- {
		select {
		case <-done:
		case <-quit:
			log.Warn().Int("remaining", remaining).Msg("Interrupted, shutting down")
			remaining = 0
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	summarize(ctx, jobStore)
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// summarize logs the final state of every job and exits non-zero if any failed.
func summarize(ctx context.Context, store jobs.JobStore) {
	log := logger.FromContext(ctx)

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list jobs")
	}
	failed := 0
	for _, job := range all {
		event := log.Info()
		if job.Status != jobs.JobStatusCompleted {
			failed++
			event = log.Error()
		}
		event.
			Str("application_id", job.ApplicationID).
			Str("report_id", job.ReportID).
			Str("status", string(job.Status)).
			Str("error", job.Error).
			Msg("Report job finished")
	}
	if failed > 0 {
		os.Exit(1)
	}
}
