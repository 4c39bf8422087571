// Package activatekey реализует HTTP-обработчик активации лицензионного ключа.
//
// Ключ одноразовый: успешная активация выдаёт подписку текущему
// пользователю и навсегда гасит ключ. Использованный и несуществующий
// ключи наружу неразличимы — оба дают 400.
package activatekey

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
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Request — структура входных данных для активации ключа.
type Request struct {
	Key string `json:"key" validate:"required,min=10,max=64"`
}

// Handler обрабатывает запросы на активацию лицензионного ключа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики активации ключа.
type Service interface {
	Activate(ctx context.Context, userID int64, keyStr string) (*models.PublicUser, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Активировать лицензионный ключ
// @Description Одноразово активирует ключ и выдает подписку текущему пользователю.
// @Tags Me
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Лицензионный ключ"
// @Success 200 {object} map[string]any "Обновленный профиль"
// @Failure 400 {object} response.ErrorResponse "Неверный или использованный ключ"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /keys/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.me.activatekey"

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

	user, err := h.service.Activate(r.Context(), userID, req.Key)
	if err != nil {
		if errors.Is(err, storeerr.ErrInvalidKey) {
			log.Warn("key rejected", slog.Int64("user_id", userID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid or already used key"))
			return
		}
		log.Error("failed to activate key", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not activate key"))
		return
	}

	log.Info("key activated", slog.Int64("user_id", userID),
		slog.String("tier", user.SubscriptionTier))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
