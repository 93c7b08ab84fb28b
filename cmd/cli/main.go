package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/dvloznov/credit-assessor/internal/gcsuploader"
	"github.com/dvloznov/credit-assessor/internal/infra"
	"github.com/dvloznov/credit-assessor/internal/logger"
	"github.com/dvloznov/credit-assessor/internal/parsing"
	"github.com/dvloznov/credit-assessor/internal/pipeline"
	"github.com/dvloznov/credit-assessor/internal/scoring"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse-balance-sheet":
		runParseBalanceSheet(log)
	case "parse-bank-statement":
		runParseBankStatement(log)
	case "score":
		runScore(log)
	case "ingest":
		runIngest(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Credit Assessor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse-balance-sheet   Parse and validate a balance sheet (CSV/XLSX)")
	fmt.Println("  parse-bank-statement  Parse, validate and categorize a bank statement")
	fmt.Println("  score                 Compute the baseline score for a loan form")
	fmt.Println("  ingest                Run a document through the ingestion pipeline")
	fmt.Println("  upload                Upload a local file to GCS")
	fmt.Println("  help                  Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readTable(log zerolog.Logger, path string) *parsing.Table {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open file")
	}
	defer f.Close()

	table, err := parsing.ReadTable(filepath.Base(path), f)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read table")
	}
	return table
}

func runParseBalanceSheet(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse-balance-sheet", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the balance sheet (.csv or .xlsx)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli parse-balance-sheet -file PATH")
	}

	rec, err := parsing.BalanceSheetFromTable(readTable(log, *filePath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse balance sheet")
	}

	if err := printJSON(map[string]interface{}{
		"balance_sheet": rec,
		"validation":    parsing.ValidateBalanceSheet(rec),
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runParseBankStatement(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse-bank-statement", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the bank statement (.csv or .xlsx)")
	withRows := fs.Bool("rows", false, "Include individual transactions in the output")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli parse-bank-statement -file PATH [-rows]")
	}

	bs, err := parsing.BankStatementFromTable(readTable(log, *filePath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse bank statement")
	}
	validation := parsing.ValidateBankStatement(bs.Summary)
	if !*withRows {
		bs.Transactions = nil
	}

	log.Info().
		Int("transactions", bs.Summary.TransactionCount).
		Bool("valid", validation.Valid).
		Msg("Bank statement parsed")

	if err := printJSON(map[string]interface{}{
		"bank_statement": bs,
		"validation":     validation,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runScore(log zerolog.Logger) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	amount := fs.Float64("amount", 0, "Requested loan amount in VND")
	purpose := fs.String("purpose", "", "Loan purpose, e.g. working-capital")
	revenue := fs.String("revenue", "", "Annual revenue bucket, e.g. 1b-5b")
	tenure := fs.String("time-in-business", "", "Time in business bucket, e.g. 1-3-years")
	fs.Parse(os.Args[2:])

	form := domain.LoanFormInput{
		LoanAmount:     *amount,
		LoanPurpose:    *purpose,
		AnnualRevenue:  *revenue,
		TimeInBusiness: *tenure,
	}
	if err := scoring.ValidateLoanForm(form); err != nil {
		log.Fatal().Err(err).Msg("Invalid loan form")
	}

	if err := printJSON(map[string]interface{}{
		"result":     scoring.CalculateBaselineScore(form),
		"components": scoring.Components(form),
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	appID := fs.String("application-id", "", "Application the document belongs to")
	category := fs.String("category", "", "Document category, e.g. bank-statements")
	filePath := fs.String("file", "", "Path to the document")
	fs.Parse(os.Args[2:])

	if *appID == "" || *category == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli ingest -application-id ID -category CATEGORY -file PATH")
	}

	cat, err := domain.ParseDocumentCategory(*category)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid category")
	}
	content, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infra.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	var files pipeline.FileArchiver
	if cfg.GCSBucket != "" {
		gcs, err := gcsuploader.NewGCSFileStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcs.Close()
		files = gcs
	}

	state, err := pipeline.Ingest(ctx, repo, files, pipeline.Upload{
		ApplicationID: *appID,
		Category:      cat,
		FileName:      filepath.Base(*filePath),
		Content:       content,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	if err := printJSON(map[string]interface{}{
		"document":   state.Document,
		"validation": state.Validation,
		"metrics":    state.Metrics.Metrics,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET env)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	ctx := logger.WithContext(context.Background(), log)

	gcs, err := gcsuploader.NewGCSFileStore(ctx, *bucketName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer gcs.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := gcs.UploadFile(ctx, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}
