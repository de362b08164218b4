package main

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/consumers"
	"escrow-service/internal/database"
	"escrow-service/internal/logger"
	"escrow-service/internal/repository"
	"escrow-service/internal/services"
	"escrow-service/internal/worker"
)

func main() {
	// Load env
	config.LoadEnv()
	cfg := config.Load()

	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	// Connect DB
	if err := database.Connect(cfg.Database, log); err != nil {
		log.Fatal("database", zap.Error(err))
	}
	store := repository.New(database.DB)

	// Init Services
	helperService := services.NewHelperService(store, log)
	walletService := services.NewWalletService(store, helperService, log)
	fundingService := services.NewFundingService(store, walletService, log)

	// Processor
	processor := consumers.NewPaymentProcessor(fundingService, log)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	log.Info("Starting Asynq Worker...", zap.String("redis", cfg.RedisAddr))
	if err := worker.StartWorker(redisOpt, processor, log); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}
