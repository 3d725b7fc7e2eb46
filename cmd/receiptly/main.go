package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"receiptly/internal/api"
	"receiptly/internal/api/handlers"
	"receiptly/internal/repository"
	"receiptly/internal/service"
	"receiptly/pkg/config"
	"receiptly/pkg/logger"
	"receiptly/pkg/postgres"

	"go.uber.org/zap"
)

// @title Receiptly API
// @version 1.0
// @description Receipt ingestion API: upload, classify and extract structured receipt data

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting receiptly service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	metaRepo := repository.NewMetadataRepository(db, appLogger)
	receiptRepo := repository.NewReceiptRepository(db, appLogger)

	// Initialize services
	rasterService := service.NewRasterService(appLogger)
	visionService := service.NewVisionService(&cfg.LLM, appLogger)
	receiptService := service.NewReceiptService(metaRepo, receiptRepo, visionService, rasterService, cfg.Upload.Dir, appLogger)

	// Initialize handlers
	receiptHandler := handlers.NewReceiptHandler(receiptService, appLogger)

	// Setup router
	app := api.SetupRouter(receiptHandler, cfg, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
