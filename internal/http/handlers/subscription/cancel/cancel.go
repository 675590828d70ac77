// Package cancel реализует HTTP-обработчик отмены подписки её владельцем.
//
// Адрес вызывающего передаётся заголовком X-Sender-Address — модель
// авторизации реестра открытая, право отмены определяется совпадением
// адреса с senderAddress записи, а не аутентификацией.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/stablerent/stablerent/internal/http/response"
	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/models"
)

// SenderHeader заголовок с адресом вызывающего.
const SenderHeader = "X-Sender-Address"

// Handler обрабатывает запросы на отмену подписки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики отмены подписки
}

// Service описывает интерфейс бизнес-логики отмены подписки.
type Service interface {
	Cancel(ctx context.Context, id int64, callerAddress string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Отменяет подписку по запросу владельца. Отмена терминальна, прошедшие платежи не возвращаются.
// @Tags Subscriptions
// @Produce  json
// @Param id path int true "ID подписки"
// @Param X-Sender-Address header string true "Адрес вызывающего"
// @Success 200 {object} map[string]any "Подписка отменена"
// @Failure 403 {object} response.ErrorResponse "Отменить может только отправитель"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка уже отменена"
// @Router /subscriptions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	caller := r.Header.Get(SenderHeader)
	if caller == "" {
		log.Error("sender address header is missing")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("sender address header is required"))
		return
	}

	err = h.service.Cancel(r.Context(), id, caller)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSubscriptionDoesNotExist):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrOnlySenderCanCancel):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrSubscriptionAlreadyCancelled):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to cancel subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel subscription"))
		}
		return
	}

	log.Info("success to cancel subscription", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id":     id,
		"status": "cancelled",
	}))
}
