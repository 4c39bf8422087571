// Package grantsub реализует HTTP-обработчик выдачи подписки администратором.
//
// Нулевой expiresAt даёт срок по умолчанию для уровня: 30 дней для basic,
// 90 для plus, бессрочно для остальных. Явный expiresAt сохраняется как есть.
package grantsub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/admin"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Request — структура входных данных выдачи подписки.
type Request struct {
	Tier      string `json:"tier" validate:"required"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// Handler обрабатывает запросы на выдачу подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выдачи подписки.
type Service interface {
	GrantSubscription(ctx context.Context, targetUID int64, tierStr string, expiresAt int64) (*models.PublicUser, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Выдать подписку пользователю
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param uid path int true "Внешний идентификатор пользователя"
// @Param request body Request true "Уровень и необязательный срок"
// @Success 200 {object} map[string]any "Обновленный профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users/{uid}/subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grantsub"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	targetUID, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		log.Error("failed to decode uid from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid uid"))
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

	user, err := h.service.GrantSubscription(r.Context(), targetUID, req.Tier, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrUnknownTier):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown subscription tier"))
		case errors.Is(err, storeerr.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to grant subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not grant subscription"))
		}
		return
	}

	log.Info("subscription granted",
		slog.Int64("uid", targetUID), slog.String("tier", user.SubscriptionTier))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
