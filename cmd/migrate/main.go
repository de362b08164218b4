package main

import (
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/database"
	"escrow-service/internal/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	// Initialize Database
	if err := database.Connect(cfg.Database, log); err != nil {
		log.Fatal("database", zap.Error(err))
	}

	// Run Migrations
	log.Info("Running database migrations...")
	if err := database.Migrate(database.DB); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("Seeding banks and fee configuration...")
	if err := database.Seed(database.DB); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	log.Info("Migrations completed successfully!")
}
