// Package create реализует HTTP-обработчик для создания новых подписок.
//
// Handler принимает JSON-запрос с параметрами подписки, валидирует структуру,
// вызывает бизнес-логику создания через сервис и возвращает ID созданной
// записи в JSON-формате. Проверки предметной области выполняются сервисом
// в фиксированном порядке и возвращаются клиенту со стабильным текстом.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/stablerent/stablerent/internal/http/response"
	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/models"
)

// Handler управляет HTTP-запросами на создание новых подписок.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики для создания подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, req models.DummySubscription) (int64, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// creationErrors жёсткие отказы создания, возвращаемые клиенту как 400.
var creationErrors = []error{
	models.ErrZeroRecipientAddress,
	models.ErrNonPositiveAmount,
	models.ErrIntervalOutOfBounds,
	models.ErrBadServiceName,
	models.ErrCurrencyTooLong,
	models.ErrEndDateInPast,
	models.ErrInsufficientBalance,
	models.ErrInsufficientAllowance,
}

func isCreationError(err error) bool {
	for _, target := range creationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ServeHTTP godoc
// @Summary Создать новую подписку
// @Description Создает новую подписку. Перевод средств не выполняется, только проверка платёжеспособности первого цикла. Возвращает ID созданной записи.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscription true "Параметры новой подписки"
// @Success 200 {object} map[string]any "Успешное создание подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или параметры"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании подписки"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscription
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		if isCreationError(err) {
			log.Info("subscription creation rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create subscription"))
		return
	}

	log.Info("success to create subscription", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}
