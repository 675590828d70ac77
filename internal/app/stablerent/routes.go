// Package stablerent: маршруты основного приложения.
package stablerent

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/stablerent/stablerent/docs"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/cancel"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/create"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/due"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/health"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/process"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/read"
	"github.com/stablerent/stablerent/internal/http/handlers/subscription/usersubs"
	"github.com/stablerent/stablerent/internal/http/middlewarectx"
	processorservice "github.com/stablerent/stablerent/internal/services/processor"
	subservice "github.com/stablerent/stablerent/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
// Аутентификации нет намеренно: авторизация реестра открытая,
// право отмены определяется адресом отправителя в самой записи.
func RegisterRoutes(r chi.Router, logger *slog.Logger, subscriptionService *subservice.SubscriptionService, processorService *processorservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		r.Post("/subscriptions", create.New(logger, subscriptionService).ServeHTTP)
		r.Get("/subscriptions/due", due.New(logger, subscriptionService).ServeHTTP)
		r.Get("/subscriptions/{id}", read.New(logger, subscriptionService).ServeHTTP)
		r.Delete("/subscriptions/{id}", cancel.New(logger, subscriptionService).ServeHTTP)
		r.Post("/subscriptions/{id}/process", process.New(logger, processorService).ServeHTTP)
		r.Get("/users/{address}/subscriptions", usersubs.New(logger, subscriptionService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
