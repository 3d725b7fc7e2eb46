package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"receiptly/pkg/config"
	"receiptly/pkg/logger"
	"receiptly/pkg/postgres"

	"go.uber.org/zap"
)

// Applies every .sql file under migrations/ in lexical order. Statements are
// written to be idempotent (CREATE TABLE IF NOT EXISTS), so rerunning is safe.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationsDir := "migrations"
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		appLogger.Fatal("Failed to read migrations directory", zap.Error(err))
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(migrationsDir, name)
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			appLogger.Fatal("Failed to read migration", zap.String("file", name), zap.Error(err))
		}

		if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
			appLogger.Fatal("Migration failed", zap.String("file", name), zap.Error(err))
		}
		appLogger.Info("Applied migration", zap.String("file", name))
	}

	appLogger.Info("Migrations complete", zap.Int("applied", len(files)))
}
