// Package register реализует HTTP-обработчик регистрации пользователя портала.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/models"
)

// Request входные данные для регистрации.
type Request struct {
	TgUsername string `json:"tg_username" validate:"required,min=2,max=33"`
	Password   string `json:"password" validate:"required"`
}

// Service описывает операцию регистрации.
type Service interface {
	Register(ctx context.Context, tgUsername, password string) (*models.MessageResult, error)
}

// Handler обрабатывает HTTP-запросы для регистрации.
type Handler struct {
	log      *slog.Logger
	resolve  func(ctx context.Context) (Service, bool)
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, resolve func(ctx context.Context) (Service, bool)) *Handler {
	return &Handler{
		log:      log,
		resolve:  resolve,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	svc, ok := h.resolve(r.Context())
	if !ok {
		log.Error("tab is missing in request context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	res, err := svc.Register(r.Context(), req.TgUsername, req.Password)
	if err != nil {
		log.Info("registration failed", sl.Err(err))
		code, body := response.BackendError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}
