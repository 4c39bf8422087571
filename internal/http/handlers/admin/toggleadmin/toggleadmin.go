// Package toggleadmin реализует HTTP-обработчик переключения прав администратора.
package toggleadmin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nelondlc/license-hub/internal/http/middlewarectx"
	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/models"
	"github.com/nelondlc/license-hub/internal/services/admin"
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Handler обрабатывает запросы на переключение признака администратора.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики переключения прав.
type Service interface {
	ToggleAdmin(ctx context.Context, actorID, targetUID int64) (*models.PublicUser, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Переключить права администратора
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param uid path int true "Внешний идентификатор пользователя"
// @Success 200 {object} map[string]any "Обновленный профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный uid"
// @Failure 403 {object} response.ErrorResponse "Самоснятие прав запрещено"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users/{uid}/toggle-admin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.toggleadmin"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actorID, _ := r.Context().Value(middlewarectx.UserID).(int64)

	targetUID, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		log.Error("failed to decode uid from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid uid"))
		return
	}

	user, err := h.service.ToggleAdmin(r.Context(), actorID, targetUID)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrSelfDemotion):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("cannot change own account"))
		case errors.Is(err, storeerr.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to toggle admin", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not toggle admin"))
		}
		return
	}

	log.Info("admin flag toggled", slog.Int64("uid", targetUID), slog.Bool("is_admin", user.IsAdmin))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
