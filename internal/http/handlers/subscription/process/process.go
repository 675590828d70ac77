// Package process реализует HTTP-обработчик попытки платёжного цикла —
// публичную точку входа автоматизации. Вызов доступен любому адресу.
//
// Мягкий отказ финансирования и отмена по истечению возвращаются кодом 200
// с итогом в теле: для вызывающего это успешные вызовы, отказ платёжного
// цикла — полноценный результат, а не ошибка.
package process

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
	"github.com/stablerent/stablerent/internal/services/processor"
)

// Handler обрабатывает запросы на попытку платёжного цикла.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Обработчик платёжных циклов
}

// Service описывает интерфейс обработчика платёжных циклов.
type Service interface {
	ProcessPayment(ctx context.Context, id int64) (*processor.Outcome, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обработать платёж подписки
// @Description Выполняет одну попытку платёжного цикла. Доступно любому вызывающему. Мягкий отказ и отмена по истечению — успешный ответ с итогом в теле.
// @Tags Payments
// @Produce  json
// @Param id path int true "ID подписки"
// @Success 200 {object} map[string]any "Итог платёжного цикла"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка не активна"
// @Failure 425 {object} response.ErrorResponse "Срок платежа не наступил"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/{id}/process [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.process"

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

	outcome, err := h.service.ProcessPayment(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSubscriptionDoesNotExist):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrSubscriptionNotActive):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrPaymentNotDueYet):
			w.WriteHeader(http.StatusTooEarly)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to process payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not process payment"))
		}
		return
	}

	log.Info("payment attempt finished",
		slog.Int64("id", id),
		slog.String("status", string(outcome.Status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"outcome": outcome,
	}))
}
