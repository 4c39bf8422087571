// Package genkey реализует HTTP-обработчик выпуска лицензионных ключей.
package genkey

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
	"github.com/nelondlc/license-hub/internal/services/key"
)

// Request — структура входных данных выпуска ключей.
type Request struct {
	Tier  string `json:"tier" validate:"required"`
	Count int    `json:"count,omitempty"`
}

// Handler обрабатывает запросы на выпуск ключей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выпуска ключей.
type Service interface {
	Generate(ctx context.Context, adminID int64, tierStr string, count int) ([]string, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Выпустить лицензионные ключи
// @Description Выпускает от одного до ста одноразовых ключей заданного уровня.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Уровень и количество"
// @Success 200 {object} map[string]any "Строки выпущенных ключей"
// @Failure 400 {object} response.ErrorResponse "Нераспознанный уровень"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/keys [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.genkey"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	adminID, _ := r.Context().Value(middlewarectx.UserID).(int64)

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

	keys, err := h.service.Generate(r.Context(), adminID, req.Tier, req.Count)
	if err != nil {
		if errors.Is(err, key.ErrUnknownTier) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown subscription tier"))
			return
		}
		log.Error("failed to generate keys", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate keys"))
		return
	}

	log.Info("keys generated", slog.Int("count", len(keys)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"keys": keys,
	}))
}
