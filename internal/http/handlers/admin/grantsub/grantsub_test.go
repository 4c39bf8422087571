package grantsub

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/admin"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// MockService реализует интерфейс grantsub.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GrantSubscription(ctx context.Context, targetUID int64, tierStr string, expiresAt int64) (*models.PublicUser, error) {
	args := m.Called(ctx, targetUID, tierStr, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicUser), args.Error(1)
}

func TestGrantSubHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		urlParam       string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешная выдача подписки",
			urlParam: "42",
			body:     `{"tier":"plus"}`,
			setupMock: func(m *MockService) {
				m.On("GrantSubscription", mock.Anything, int64(42), "plus", int64(0)).
					Return(&models.PublicUser{UID: 42, SubscriptionTier: "Plus", SubscriptionActive: true}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"subscriptionTier":"Plus"`,
		},
		{
			name:     "неизвестный уровень подписки",
			urlParam: "42",
			body:     `{"tier":"platinum"}`,
			setupMock: func(m *MockService) {
				m.On("GrantSubscription", mock.Anything, int64(42), "platinum", int64(0)).
					Return(nil, admin.ErrUnknownTier)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"unknown subscription tier"`,
		},
		{
			name:     "пользователь не найден",
			urlParam: "99",
			body:     `{"tier":"basic","expiresAt":1750000000000}`,
			setupMock: func(m *MockService) {
				m.On("GrantSubscription", mock.Anything, int64(99), "basic", int64(1750000000000)).
					Return(nil, storeerr.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"user not found"`,
		},
		{
			name:           "некорректный uid",
			urlParam:       "abc",
			body:           `{"tier":"plus"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid uid"`,
		},
		{
			name:           "пустой уровень",
			urlParam:       "42",
			body:           `{"tier":""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Tier is a required field`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost,
				"/admin/users/"+tt.urlParam+"/subscription", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", tt.urlParam)
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
