// Package stablerent собирает основное приложение реестра подписок:
// хранилище с миграциями, кеш, обменник событий, клиент токен-сервиса,
// сервисы и HTTP-сервер.
package stablerent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/stablerent/stablerent/internal/cache"
	"github.com/stablerent/stablerent/internal/config"
	"github.com/stablerent/stablerent/internal/lib/rabbitmq"
	"github.com/stablerent/stablerent/internal/migrations"
	processorservice "github.com/stablerent/stablerent/internal/services/processor"
	subservice "github.com/stablerent/stablerent/internal/services/subscription"
	"github.com/stablerent/stablerent/internal/storage/repository"
	"github.com/stablerent/stablerent/internal/token"
)

// App основное приложение реестра подписок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	amqp   *amqp.Connection
}

// New инициализирует зависимости и собирает приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, 10, 3*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.DefaultQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	tokenClient := token.NewClient(cfg.TokenAPIURL, cfg.TokenAPIKey, cfg.SpenderAddress, cfg.TokenTimeout)

	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, tokenClient, publisher, logger)
	processorService := processorservice.New(processorservice.NewLedger(db), tokenClient, cacheRedis, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, subscriptionService, processorService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   conn,
	}, nil
}

// Run запускает HTTP-сервер и выполняет корректное завершение по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.amqp.Close()
		_ = a.db.DB.Close()
		return err
	}
}
