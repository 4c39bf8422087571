// Package users реализует HTTP-обработчик списка и поиска пользователей в админке.
//
// Без параметров возвращает последних зарегистрированных; параметр q ищет
// по подстроке имени или почты, параметр uid — по точному внешнему
// идентификатору. Параметры объединяются через ИЛИ.
package users

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

// Handler обрабатывает запросы на список и поиск пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка пользователей.
type Service interface {
	ListUsers(ctx context.Context, limit int) ([]models.PublicUser, error)
	SearchUsers(ctx context.Context, query string, uid int64) ([]models.PublicUser, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список или поиск пользователей
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param q query string false "Подстрока имени или почты"
// @Param uid query int false "Точный внешний идентификатор"
// @Param limit query int false "Максимум пользователей в выдаче"
// @Success 200 {object} map[string]any "Публичные профили"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	query := r.URL.Query().Get("q")
	uid, _ := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)

	var (
		users []models.PublicUser
		err   error
	)
	if query != "" || uid != 0 {
		users, err = h.service.SearchUsers(r.Context(), query, uid)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		users, err = h.service.ListUsers(r.Context(), limit)
	}
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list users"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"users": users,
	}))
}
