package login

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/auth"
)

// MockService реализует интерфейс login.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, login, rawPassword, hwid string) (string, *models.PublicUser, error) {
	args := m.Called(ctx, login, rawPassword, hwid)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.PublicUser), args.Error(2)
}

func TestLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный вход",
			body: `{"login":"testuser","password":"password123","hwid":"device-1"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "testuser", "password123", "device-1").
					Return("jwt-token-123", &models.PublicUser{UID: 7, Username: "testuser"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"jwt-token-123"`,
		},
		{
			name: "неверные учетные данные",
			body: `{"login":"testuser","password":"wrongpass"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "testuser", "wrongpass", "").
					Return("", nil, auth.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"invalid credentials"`,
		},
		{
			name: "чужое устройство",
			body: `{"login":"testuser","password":"password123","hwid":"device-2"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "testuser", "password123", "device-2").
					Return("", nil, auth.ErrHWIDMismatch)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"account is bound to another device"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"login":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "ошибка валидации",
			body:           `{"login":"ab","password":"Clave123"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Login`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
