package due

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService реализует интерфейс due.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListDue(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDueHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "список подписок к оплате",
			setupMock: func(m *MockService) {
				m.On("ListDue", mock.Anything).Return([]int64{3, 5, 8}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ids":[3,5,8]`,
		},
		{
			name: "пустой список",
			setupMock: func(m *MockService) {
				m.On("ListDue", mock.Anything).Return([]int64{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ids":[]`,
		},
		{
			name: "ошибка сервиса",
			setupMock: func(m *MockService) {
				m.On("ListDue", mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not list due subscriptions`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/due", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
