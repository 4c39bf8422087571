// Package download реализует HTTP-обработчик выдачи ссылки на лоадер.
// Доступ открыт только пользователям с активной подпиской.
package download

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nelondlc/license-hub/internal/http/middlewarectx"
	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
)

// Handler обрабатывает запросы на скачивание лоадера.
type Handler struct {
	log     *slog.Logger
	service Service
	fileURL string
}

// Service описывает интерфейс проверки доступа к загрузке.
type Service interface {
	CanDownload(ctx context.Context, userID int64) (bool, error)
}

// New создает новый Handler. fileURL — конфигурируемая ссылка на сборку лоадера.
func New(log *slog.Logger, service Service, fileURL string) *Handler {
	return &Handler{log: log, service: service, fileURL: fileURL}
}

// ServeHTTP godoc
// @Summary Получить ссылку на лоадер
// @Tags Download
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Ссылка на скачивание"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /download [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.download"

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

	allowed, err := h.service.CanDownload(r.Context(), userID)
	if err != nil {
		log.Error("failed to check subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check subscription"))
		return
	}
	if !allowed {
		log.Warn("download denied: no active subscription", slog.Int64("user_id", userID))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("active subscription required"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"url": h.fileURL,
	}))
}
