// Package due реализует HTTP-обработчик выборки подписок к оплате.
// Список повторяет критерии, по которым обработчик платежей принял бы
// вызов прямо сейчас, чтобы автоматизация не тратила вызовы впустую.
package due

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/stablerent/stablerent/internal/http/response"
	"github.com/stablerent/stablerent/internal/lib/sl"
)

// Handler обрабатывает запросы на выборку подписок к оплате.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс выборки подписок к оплате.
type Service interface {
	ListDue(ctx context.Context) ([]int64, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список подписок к оплате
// @Description Возвращает идентификаторы активных подписок с наступившим сроком платежа, не истекших по end_date и max_payments, по возрастанию id.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Список идентификаторов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/due [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.due"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ids, err := h.service.ListDue(r.Context())
	if err != nil {
		log.Error("failed to list due subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list due subscriptions"))
		return
	}

	log.Info("success to list due subscriptions", slog.Int("count", len(ids)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ids": ids,
	}))
}
