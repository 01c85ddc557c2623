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

	"github.com/vivekbharatha/vbank/internal/app/transactions"
	"github.com/vivekbharatha/vbank/internal/centralbank"
	"github.com/vivekbharatha/vbank/internal/config"
	"github.com/vivekbharatha/vbank/internal/domain"
	http_transactions "github.com/vivekbharatha/vbank/internal/handler/http/transactions"
	kafka_handler "github.com/vivekbharatha/vbank/internal/handler/kafka"
	"github.com/vivekbharatha/vbank/internal/infrastructure/database"
	"github.com/vivekbharatha/vbank/internal/infrastructure/kafka"
	"github.com/vivekbharatha/vbank/internal/infrastructure/redisclient"
	postgres_transactions_repo "github.com/vivekbharatha/vbank/internal/repository/transactions_repo/postgres"
)

func main() {
	cfg, err := config.LoadConfig("transaction-service")
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
	logger.Info("Transaction Service starting...")

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

	m, err := migrate.New("file://migrations/transactions", cfg.GetDBMigrationConnectionString())
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
	if err := kafka.EnsureTopics(ensureCtx, cfg.GetKafkaBrokers(), []string{domain.TransactionEventsTopic}, 3, logger); err != nil {
		logger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}
	cancelEnsure()

	producer := kafka.NewProducer(cfg.GetKafkaBrokers(), logger)
	defer producer.Close()

	transactionRepository := postgres_transactions_repo.NewTransactionRepository(db)

	callbackURL := cfg.APIGatewayURL + "/api/v1/transactions/external/receipt"
	centralBank := centralbank.NewClient(cfg.CentralBankAPIURL, cfg.CentralBankAPIKey, callbackURL, 10*time.Second, logger)

	transactionService := transactions.NewService(transactionRepository, producer, centralBank, logger)

	consumer := kafka.NewConsumer(
		cfg.GetKafkaBrokers(),
		domain.TransactionEventsTopic,
		"ts-transaction-events-cg",
		kafka_handler.NewTransactionEventsHandler(transactionService, logger),
		logger,
	)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Consume(consumerCtx); err != nil {
			logger.Fatal("Kafka consumer failed", zap.Error(err))
		}
	}()
	logger.Info("Transaction events consumer started.")

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	http_transactions.RegisterRoutes(r, transactionService, cfg.JWTSecret, cfg.APIKey, redisClient, logger)
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
	logger.Info("Transaction Service started", zap.Int("port", cfg.HTTPPort))

	<-sigChan
	logger.Info("Shutting down Transaction Service...")

	stopConsumer()
	if err := consumer.Close(); err != nil {
		logger.Error("Error closing Kafka consumer", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Transaction Service stopped.")
}
