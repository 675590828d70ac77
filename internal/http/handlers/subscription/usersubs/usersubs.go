// Package usersubs реализует HTTP-обработчик пользовательского индекса:
// список идентификаторов подписок отправителя в порядке создания.
package usersubs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/stablerent/stablerent/internal/http/response"
	"github.com/stablerent/stablerent/internal/lib/sl"
)

// Handler обрабатывает запросы на список подписок отправителя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс пользовательского индекса.
type Service interface {
	ListUserSubscriptions(ctx context.Context, senderAddress string) ([]int64, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Подписки отправителя
// @Description Возвращает идентификаторы подписок, созданных указанным адресом, в порядке создания. Для неизвестного адреса — пустой список.
// @Tags Subscriptions
// @Produce  json
// @Param address path string true "Адрес отправителя"
// @Success 200 {object} map[string]any "Список идентификаторов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users/{address}/subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.usersubs"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	address := chi.URLParam(r, "address")
	if address == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("address is required"))
		return
	}

	ids, err := h.service.ListUserSubscriptions(r.Context(), address)
	if err != nil {
		log.Error("failed to list user subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list user subscriptions"))
		return
	}

	log.Info("success to list user subscriptions",
		slog.String("address", address), slog.Int("count", len(ids)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ids": ids,
	}))
}
