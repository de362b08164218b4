package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/database"
	grpcServer "escrow-service/internal/grpc"
	"escrow-service/internal/handlers"
	"escrow-service/internal/logger"
	"escrow-service/internal/repository"
	"escrow-service/internal/services"
	"escrow-service/internal/worker"
	"escrow-service/pkg/common"
)

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// Initialize Database
	if err := database.Connect(cfg.Database, log); err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(database.DB); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	store := repository.New(database.DB)

	// Redis/Asynq Client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()
	dispatcher := worker.NewDispatcher(asynqClient)

	// Init Services
	httpClient := common.NewHTTPClient(30 * time.Second)
	helperService := services.NewHelperService(store, log)
	walletService := services.NewWalletService(store, helperService, log)
	feeService := services.NewFeeService(store, log)
	fundingService := services.NewFundingService(store, walletService, log)

	// Providers
	payFastService := services.NewPayFastService(store, fundingService, feeService, helperService, cfg.PayFast, httpClient, dispatcher, log)
	tradeSafeClient := services.NewTradeSafeClient(cfg.TradeSafe, httpClient)
	tradeSafeService := services.NewTradeSafeService(store, tradeSafeClient, fundingService, feeService, helperService, cfg.TradeSafe, log)

	withdrawalService := services.NewWithdrawalService(store, walletService, helperService, cfg.Withdrawal, log)
	disputeService := services.NewDisputeService(store, fundingService, feeService, log)
	paymentService := services.NewPaymentService(store, tradeSafeService, log)

	h := &handlers.Handler{
		Wallet:      walletService,
		Fees:        feeService,
		PayFast:     payFastService,
		TradeSafe:   tradeSafeService,
		Withdrawals: withdrawalService,
		Disputes:    disputeService,
		Logger:      log,
	}
	r := handlers.NewRouter(h, handlers.RouterConfig{
		Auth: handlers.AuthConfig{
			Secret:          cfg.JWTSecret,
			AllowUserHeader: cfg.PayFast.Sandbox,
			Logger:          log,
		},
		VerifyRateLimit: cfg.VerifyRateLimit,
		VerifyRateBurst: cfg.VerifyRateBurst,
		TrustedProxies:  cfg.TrustedProxies,
	})

	// Start gRPC server
	go func() {
		srv := grpcServer.NewServer(walletService, withdrawalService, disputeService, log)
		if err := grpcServer.StartGRPCServer(cfg.GRPCPort, srv); err != nil {
			log.Fatal("gRPC server stopped", zap.Error(err))
		}
	}()

	// Start Cron Schedulers
	if err := paymentService.StartScheduler(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer paymentService.Stop()

	archiveService := services.NewCallbackArchiveService(store, cfg.CallbackRetention, log)
	if err := archiveService.StartScheduler(); err != nil {
		log.Fatal("failed to start archive scheduler", zap.Error(err))
	}
	defer archiveService.Stop()

	log.Info("HTTP Server starting", zap.String("port", cfg.HTTPPort))
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
