// Package clearsub реализует HTTP-обработчик снятия подписки администратором.
package clearsub

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Handler обрабатывает запросы на снятие подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики снятия подписки.
type Service interface {
	ClearSubscription(ctx context.Context, targetUID int64) (*models.PublicUser, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Снять подписку пользователя
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param uid path int true "Внешний идентификатор пользователя"
// @Success 200 {object} map[string]any "Обновленный профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный uid"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users/{uid}/subscription [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.clearsub"

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

	user, err := h.service.ClearSubscription(r.Context(), targetUID)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to clear subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not clear subscription"))
		return
	}

	log.Info("subscription cleared", slog.Int64("uid", targetUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
