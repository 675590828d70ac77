package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/stablerent/stablerent/internal/cache"
	"github.com/stablerent/stablerent/internal/config"
	"github.com/stablerent/stablerent/internal/lib/rabbitmq"
	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/services/automation"
	"github.com/stablerent/stablerent/internal/services/processor"
	subservice "github.com/stablerent/stablerent/internal/services/subscription"
	"github.com/stablerent/stablerent/internal/storage/repository"
	"github.com/stablerent/stablerent/internal/token"
)

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil // готово
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting automation worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, 10, 3*time.Second)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to connect to RabbitMQ", slog.String("URL", cfg.RabbitMQConnection))
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.DefaultQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to setup RabbitMQ channel")
	defer func() {
		_ = ch.Close()
	}()
	publisher := rabbitmq.NewPublisher(ch)

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()
	if err = waitForDB(db); err != nil {
		logger.Error("database is not ready", sl.Err(err))
		os.Exit(1)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	tokenClient := token.NewClient(cfg.TokenAPIURL, cfg.TokenAPIKey, cfg.SpenderAddress, cfg.TokenTimeout)

	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, tokenClient, publisher, logger)
	processorService := processor.New(processor.NewLedger(db), tokenClient, cacheRedis, publisher, logger)

	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst)
	worker := automation.NewWorker(subscriptionService, processorService, limiter, logger)

	worker.Run(ctx, cfg.PollInterval)
	logger.Info("automation worker stopped gracefully")
}
