package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"translation-backend/internal/shared/config"
	"translation-backend/internal/shared/storage/db"
	"translation-backend/internal/shared/telemetry"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	_, flush, err := telemetry.Setup(telemetry.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return eris.Wrap(err, "init logger")
	}
	defer flush()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultMigrateOptions().WithOverrides(cfg.DB))
	if err != nil {
		return eris.Wrap(err, "connect database")
	}
	defer sqlDB.Close() //nolint:errcheck

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return eris.Wrap(err, "run migrations")
	}
	telemetry.Info("migrate.done", nil)
	return nil
}
