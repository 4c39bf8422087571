// Package create реализует HTTP-обработчик публикации поста с конфигом.
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

	"github.com/nelondlc/license-hub/internal/http/middlewarectx"
	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/services/post"
)

// Request — структура входных данных публикации поста.
type Request struct {
	Server         string `json:"server" validate:"required,min=2,max=100"`
	Title          string `json:"title" validate:"required,min=3,max=200"`
	Description    string `json:"description" validate:"required,min=3"`
	ScreenshotPath string `json:"screenshotPath,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
}

// Handler обрабатывает запросы на публикацию постов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики публикации поста.
type Service interface {
	Create(ctx context.Context, userID int64, server, title, description, screenshot, downloadURL string) (int64, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Опубликовать пост
// @Tags Posts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные поста"
// @Success 200 {object} map[string]any "ID созданного поста"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /posts [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.post.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok || userID == 0 {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Create(r.Context(), userID,
		req.Server, req.Title, req.Description, req.ScreenshotPath, req.DownloadURL)
	if err != nil {
		if errors.Is(err, post.ErrUnknownServer) {
			log.Warn("post rejected", slog.String("server", req.Server))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown game server"))
			return
		}
		log.Error("failed to create post", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create post"))
		return
	}

	log.Info("post created", slog.Int64("post_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id": id,
	}))
}
