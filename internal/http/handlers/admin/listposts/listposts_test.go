package listposts

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

	"github.com/nelondlc/license-hub/internal/models"
)

// MockService реализует интерфейс listposts.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ListAll(ctx context.Context) ([]*models.PostInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PostInfo), args.Error(1)
}

func TestListPostsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная выдача списка",
			setupMock: func(m *MockService) {
				m.On("ListAll", mock.Anything).Return([]*models.PostInfo{
					{ID: 2, Server: "HolyWorld", Title: "pvp config", AuthorUsername: "alice", LikeCount: 3},
					{ID: 1, Server: "F0nTimE", Title: "starter config", AuthorUsername: "bob"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"authorUsername":"alice"`,
		},
		{
			name: "пустой список",
			setupMock: func(m *MockService) {
				m.On("ListAll", mock.Anything).Return([]*models.PostInfo{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"posts":[]`,
		},
		{
			name: "ошибка сервиса",
			setupMock: func(m *MockService) {
				m.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not list posts"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
