package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storda-registry/internal/blacklist"
	"storda-registry/internal/cache"
	"storda-registry/internal/config"
	"storda-registry/internal/database"
	"storda-registry/internal/delivery/http/handler"
	"storda-registry/internal/events"
	"storda-registry/internal/infrastructure/database/postgres"
	"storda-registry/internal/logger"
	"storda-registry/internal/routes"
	accountUsecase "storda-registry/internal/usecase/account"
	registryUsecase "storda-registry/internal/usecase/registry"
	transferUsecase "storda-registry/internal/usecase/transfer"
	verificationUsecase "storda-registry/internal/usecase/verification"
	walletUsecase "storda-registry/internal/usecase/wallet"
	"storda-registry/pkg/mqtt"

	"go.uber.org/zap"
)

const recheckBatchSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := cache.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher := buildPublisher(cfg)

	var checker blacklist.Checker
	if cfg.Blacklist.URL != "" {
		checker = blacklist.NewHTTPChecker(cfg.Blacklist.URL, cfg.Blacklist.Timeout)
	} else {
		logger.Warn("no blacklist registry configured, using built-in rules")
		checker = blacklist.NewStaticChecker()
	}

	accountRepo := postgres.NewAccountRepository(db.DB)
	deviceRepo := postgres.NewDeviceRepository(db.DB)
	transferRepo := postgres.NewTransferRepository(db.DB)
	ledgerRepo := postgres.NewLedgerRepository(db.DB)

	pinLimiter := cache.NewPinLimiter(
		redisClient,
		cfg.RateLimit.PinMaxAttempts,
		cfg.RateLimit.PinWindow,
		cfg.RateLimit.PinLockout,
	)
	otpStore := cache.NewOTPStore(redisClient)

	accountSvc := accountUsecase.NewService(accountRepo, pinLimiter, cfg)
	registrySvc := registryUsecase.NewService(deviceRepo, checker, publisher, cfg)
	verificationSvc := verificationUsecase.NewService(deviceRepo, checker, publisher)
	transferSvc := transferUsecase.NewService(
		transferRepo,
		deviceRepo,
		accountRepo,
		accountSvc,
		otpStore,
		transferUsecase.LogNotifier{},
		publisher,
		cfg,
	)
	walletSvc := walletUsecase.NewService(ledgerRepo)

	handlers := &routes.Handlers{
		Account:  handler.NewAccountHandler(accountSvc),
		Device:   handler.NewDeviceHandler(registrySvc, verificationSvc),
		Transfer: handler.NewTransferHandler(transferSvc),
		Wallet:   handler.NewWalletHandler(walletSvc),
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go transferSvc.StartExpirySweep(jobCtx, cfg.Transfer.SweepInterval)
	go verificationSvc.StartRecheckJob(jobCtx, cfg.Transfer.SweepInterval, recheckBatchSize)

	router := routes.SetupRouter(cfg, db, handlers)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// buildPublisher connects to the MQTT broker when one is configured; the
// service runs fine without events.
func buildPublisher(cfg *config.Config) events.Publisher {
	if cfg.MQTT.Broker == "" {
		logger.Warn("no MQTT broker configured, events disabled")
		return events.NopPublisher{}
	}

	client := mqtt.NewClient(&mqtt.Config{
		Broker:        cfg.MQTT.Broker,
		ClientID:      cfg.MQTT.ClientID,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
		AutoReconnect: true,
	})
	if err := client.Connect(); err != nil {
		logger.Warn("failed to connect to MQTT broker, events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return events.NewMQTTPublisher(client, cfg.MQTT.TopicPrefix)
}
