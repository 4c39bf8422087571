package removekey

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
)

// MockService реализует интерфейс removekey.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Delete(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func TestRemoveKeyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		urlParam       string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешное удаление",
			urlParam: "15",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(15)).Return(1, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"deleted":1`,
		},
		{
			name:     "ключ не найден",
			urlParam: "99",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(99)).Return(0, nil)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"key not found"`,
		},
		{
			name:           "некорректный id",
			urlParam:       "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid key id"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodDelete, "/admin/keys/"+tt.urlParam, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlParam)
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
