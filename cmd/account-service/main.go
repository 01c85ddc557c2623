package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vivekbharatha/vbank/internal/app/accounts"
	"github.com/vivekbharatha/vbank/internal/app/ledger"
	"github.com/vivekbharatha/vbank/internal/config"
	"github.com/vivekbharatha/vbank/internal/domain"
	http_accounts "github.com/vivekbharatha/vbank/internal/handler/http/accounts"
	kafka_handler "github.com/vivekbharatha/vbank/internal/handler/kafka"
	"github.com/vivekbharatha/vbank/internal/infrastructure/database"
	"github.com/vivekbharatha/vbank/internal/infrastructure/kafka"
	"github.com/vivekbharatha/vbank/internal/infrastructure/redisclient"
	postgres_accounts_repo "github.com/vivekbharatha/vbank/internal/repository/accounts_repo/postgres"
)

func main() {
	cfg, err := config.LoadConfig("account-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Account Service starting...")

	db, err := database.ConnectWithRetry(database.Config{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}, 10, 5*time.Second, logger)
	if err != nil {
		logger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	m, err := migrate.New("file://migrations/accounts", cfg.GetDBMigrationConnectionString())
	if err != nil {
		logger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed.")

	redisClient, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 30*time.Second)
	topics := []string{domain.TransactionEventsTopic, domain.AccountCreatedTopic, domain.AccountDeletedTopic}
	if err := kafka.EnsureTopics(ensureCtx, cfg.GetKafkaBrokers(), topics, 3, logger); err != nil {
		logger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}
	cancelEnsure()

	producer := kafka.NewProducer(cfg.GetKafkaBrokers(), logger)
	defer producer.Close()

	accountRepository := postgres_accounts_repo.NewAccountRepository(db)

	accountService := accounts.NewService(accountRepository, producer, logger)
	ledgerService := ledger.NewService(accountRepository, producer, logger)

	consumer := kafka.NewConsumer(
		cfg.GetKafkaBrokers(),
		domain.TransactionEventsTopic,
		"as-transaction-events-cg",
		kafka_handler.NewTransactionEventsHandler(ledgerService, logger),
		logger,
	)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Consume(consumerCtx); err != nil {
			logger.Fatal("Kafka consumer failed", zap.Error(err))
		}
	}()
	logger.Info("Ledger events consumer started.")

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	http_accounts.RegisterRoutes(r, accountService, cfg.JWTSecret, cfg.APIKey, redisClient, logger)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	logger.Info("Account Service started", zap.Int("port", cfg.HTTPPort))

	<-sigChan
	logger.Info("Shutting down Account Service...")

	stopConsumer()
	if err := consumer.Close(); err != nil {
		logger.Error("Error closing Kafka consumer", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Account Service stopped.")
}
