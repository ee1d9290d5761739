// Package refresh реализует HTTP-обработчик обновления access-токена вкладки.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/models"
	"github.com/magabrotheeeer/student-portal/internal/services/auth"
)

// Service описывает обновление токена вкладки.
type Service interface {
	Refresh(ctx context.Context) (*models.RefreshResult, error)
}

// Handler обрабатывает HTTP-запросы для обновления токена.
type Handler struct {
	log     *slog.Logger
	resolve func(ctx context.Context) (Service, bool)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, resolve func(ctx context.Context) (Service, bool)) *Handler {
	return &Handler{
		log:     log,
		resolve: resolve,
	}
}

// ServeHTTP обновляет токен. Новый токен остаётся в сессии и клиенту не отдаётся.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	svc, ok := h.resolve(r.Context())
	if !ok {
		log.Error("tab is missing in request context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if _, err := svc.Refresh(r.Context()); err != nil {
		if errors.Is(err, auth.ErrNoRefreshToken) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("not authenticated"))
			return
		}
		log.Info("token refresh failed", sl.Err(err))
		code, body := response.BackendError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{"refreshed": true}))
}
