package process

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/stablerent/stablerent/internal/models"
	"github.com/stablerent/stablerent/internal/services/processor"
)

// MockService реализует интерфейс process.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessPayment(ctx context.Context, id int64) (*processor.Outcome, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*processor.Outcome), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestProcessHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		urlID          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешный платёжный цикл",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).Return(&processor.Outcome{
					Status:         processor.OutcomeProcessed,
					PaymentCount:   3,
					NextPaymentDue: 1_700_086_400,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"processed"`,
		},
		{
			// Мягкий отказ — это успешный вызов с итогом failed в теле.
			name:  "мягкий отказ финансирования",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).Return(&processor.Outcome{
					Status:             processor.OutcomeFailed,
					Reason:             string(models.FailureInsufficientBalance),
					FailedPaymentCount: 1,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"failed"`,
		},
		{
			name:  "отмена по истечению",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).Return(&processor.Outcome{
					Status: processor.OutcomeCancelled,
					Reason: string(models.ReasonExpiredEndDate),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"reason":"expired_end_date"`,
		},
		{
			name:           "некорректный id в URL",
			urlID:          "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `failed to decode id from url`,
		},
		{
			name:  "подписка не найдена",
			urlID: "99",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(99)).
					Return(nil, models.ErrSubscriptionDoesNotExist)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   models.ErrSubscriptionDoesNotExist.Error(),
		},
		{
			name:  "подписка не активна",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).
					Return(nil, models.ErrSubscriptionNotActive)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   models.ErrSubscriptionNotActive.Error(),
		},
		{
			name:  "срок платежа не наступил",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).
					Return(nil, models.ErrPaymentNotDueYet)
			},
			expectedStatus: http.StatusTooEarly,
			expectedBody:   models.ErrPaymentNotDueYet.Error(),
		},
		{
			name:  "ошибка перевода",
			urlID: "1",
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, int64(1)).
					Return(nil, errors.New("token service unavailable"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not process payment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+tt.urlID+"/process", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
