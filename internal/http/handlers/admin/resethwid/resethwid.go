// Package resethwid реализует HTTP-обработчик сброса привязки устройства.
package resethwid

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
	"github.com/nelondlc/license-hub/internal/storage/storeerr"
)

// Handler обрабатывает запросы на сброс привязки устройства.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики сброса привязки.
type Service interface {
	ResetHWID(ctx context.Context, targetUID int64) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сбросить привязку устройства
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param uid path int true "Внешний идентификатор пользователя"
// @Success 200 {object} response.Response "Привязка сброшена"
// @Failure 400 {object} response.ErrorResponse "Некорректный uid"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users/{uid}/reset-hwid [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.resethwid"

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

	if err := h.service.ResetHWID(r.Context(), targetUID); err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to reset hwid", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reset hwid"))
		return
	}

	log.Info("hwid reset", slog.Int64("uid", targetUID))
	render.JSON(w, r, response.OK())
}
