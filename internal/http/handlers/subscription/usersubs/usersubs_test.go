package usersubs

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
)

// MockService реализует интерфейс usersubs.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListUserSubscriptions(ctx context.Context, senderAddress string) ([]int64, error) {
	args := m.Called(ctx, senderAddress)
	if res := args.Get(0); res != nil {
		return res.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUserSubsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		address        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "подписки отправителя в порядке создания",
			address: "0xsender",
			setupMock: func(m *MockService) {
				m.On("ListUserSubscriptions", mock.Anything, "0xsender").Return([]int64{1, 4, 9}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ids":[1,4,9]`,
		},
		{
			name:    "неизвестный адрес даёт пустой список",
			address: "0xunknown",
			setupMock: func(m *MockService) {
				m.On("ListUserSubscriptions", mock.Anything, "0xunknown").Return([]int64{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ids":[]`,
		},
		{
			name:    "ошибка сервиса",
			address: "0xsender",
			setupMock: func(m *MockService) {
				m.On("ListUserSubscriptions", mock.Anything, "0xsender").
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not list user subscriptions`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/users/"+tt.address+"/subscriptions", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("address", tt.address)
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
