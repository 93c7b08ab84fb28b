package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/credit-assessor/internal/config"
	"github.com/dvloznov/credit-assessor/internal/logger"
)

// backend is a database that migrations can be applied to.
type backend interface {
	EnsureSchemaTable(ctx context.Context) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration, appliedBy string) error
	Close() error
}

var (
	backendName   = flag.String("backend", os.Getenv("STORE_BACKEND"), "postgres or bigquery (or set STORE_BACKEND env)")
	databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL env)")
	projectID     = flag.String("project", os.Getenv("BQ_PROJECT"), "GCP project ID (or set BQ_PROJECT env)")
	datasetID     = flag.String("dataset", envOr("BQ_DATASET", "credit"), "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations", "Path to the migrations root; the backend name is appended")
	dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	var (
		db           backend
		err          error
		placeholders map[string]string
	)
	switch *backendName {
	case config.BackendPostgres:
		if *databaseURL == "" {
			log.Fatal().Msg("Error: -database-url is required for the postgres backend")
		}
		db, err = newPostgresBackend(ctx, *databaseURL)
	case config.BackendBigQuery:
		if *projectID == "" {
			log.Fatal().Msg("Error: -project is required for the bigquery backend")
		}
		db, err = newBigQueryBackend(ctx, *projectID, *datasetID)
		placeholders = map[string]string{"PROJECT_ID": *projectID, "DATASET_ID": *datasetID}
	default:
		log.Fatal().Str("backend", *backendName).Msg("Error: -backend must be postgres or bigquery")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer db.Close()

	if err := run(ctx, db, *backendName, placeholders); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(ctx context.Context, db backend, name string, placeholders map[string]string) error {
	log := logger.FromContext(ctx)

	dir, err := resolveDir(filepath.Join(*migrationsDir, name))
	if err != nil {
		return err
	}
	if err := db.EnsureSchemaTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(dir, placeholders, func(file string) {
		log.Warn().Str("file", file).Msg("Skipping file with invalid name")
	})
	if err != nil {
		return err
	}
	applied, err := db.Applied(ctx)
	if err != nil {
		return err
	}
	todo, err := pending(migrations, applied)
	if err != nil {
		return err
	}

	log.Info().
		Str("backend", name).
		Int("found", len(migrations)).
		Int("applied", len(applied)).
		Int("pending", len(todo)).
		Msg("Migrations read")

	for _, m := range todo {
		if *dryRun {
			log.Info().Str("migration", m.Filename).Msg("Pending")
			continue
		}
		log.Info().Str("migration", m.Filename).Msg("Applying")
		if err := db.Apply(ctx, m, *appliedBy); err != nil {
			return fmt.Errorf("apply %s: %w", m.Filename, err)
		}
	}

	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else if !*dryRun {
		log.Info().Int("count", len(todo)).Msg("Migrations applied")
	}
	return nil
}
