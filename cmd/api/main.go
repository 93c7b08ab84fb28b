package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/analysis"
	"github.com/dvloznov/credit-assessor/internal/api/handlers"
	"github.com/dvloznov/credit-assessor/internal/api/middleware"
	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/gcsuploader"
	"github.com/dvloznov/credit-assessor/internal/infra"
	"github.com/dvloznov/credit-assessor/internal/jobs"
	jobsmem "github.com/dvloznov/credit-assessor/internal/jobs/inmemory"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/notionsync"
	"github.com/dvloznov/credit-assessor/internal/pipeline"
)

func main() {
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

	ctx := context.Background()

	repo, err := infra.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open repository")
	}
	defer repo.Close()
	log.Info().Str("backend", cfg.StoreBackend).Msg("Repository ready")

	var files pipeline.FileArchiver
	if cfg.GCSBucket != "" {
		gcs, err := gcsuploader.NewGCSFileStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcs.Close()
		files = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured - raw uploads will not be archived")
	}

	var gateway analysis.Gateway = analysis.Unavailable{}
	model := cfg.GeminiModel
	if cfg.GeminiAPIKey != "" {
		gemini, err := analysis.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini gateway")
		}
		gateway = gemini
		model = gemini.Model()
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - analysis endpoints will return 502")
	}

	// Report jobs get their single retry from the queue.
	syncAnalyzer := analysis.NewAnalyzer(gateway, cfg.AIMaxRetries)
	jobAnalyzer := analysis.NewAnalyzer(gateway, 0)

	reportHandler := &jobs.ReportHandler{Repo: repo, Analyzer: jobAnalyzer, Model: model}
	if cfg.NotionEnabled() {
		reportHandler.Publisher = notionsync.NewReportPublisher(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionReportsDB)
		log.Info().Msg("Publishing reports to Notion")
	}

	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, cfg.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, reportHandler.Handle); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	router := handlers.NewRouter(handlers.Handlers{
		Applications: handlers.NewApplicationsHandler(repo, log),
		Documents:    handlers.NewDocumentsHandler(repo, files, log),
		Analysis:     handlers.NewAnalysisHandler(repo, syncAnalyzer, model, jobQueue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Products:     handlers.NewProductsHandler(repo, log),
	})

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(cfg.CORSOrigins)(
					middleware.Auth(router),
				),
			),
		),
	)

	// Analysis calls may take up to the AI timeout plus one retry.
	writeTimeout := 2*cfg.AITimeout + 15*time.Second
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(log, server, jobQueue, cancelWorker)
}

func shutdown(log zerolog.Logger, server *http.Server, queue *jobsmem.Queue, cancelWorker context.CancelFunc) {
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight jobs finish before cancelling their context.
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
