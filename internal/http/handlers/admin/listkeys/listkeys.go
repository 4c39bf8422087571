// Package listkeys реализует HTTP-обработчик списка лицензионных ключей.
package listkeys

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nelondlc/license-hub/internal/http/response"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/models"
)

// Handler обрабатывает запросы на список ключей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка ключей.
type Service interface {
	List(ctx context.Context, limit int) ([]*models.KeyInfo, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список лицензионных ключей
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Максимум ключей в выдаче"
// @Success 200 {object} map[string]any "Ключи с именами создателя и потребителя"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/keys [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.listkeys"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	keys, err := h.service.List(r.Context(), limit)
	if err != nil {
		log.Error("failed to list keys", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list keys"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"keys": keys,
	}))
}
