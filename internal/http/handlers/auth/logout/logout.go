// Package logout реализует HTTP-обработчик выхода из портала.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/models"
)

// Service описывает операцию выхода вкладки.
type Service interface {
	Logout(ctx context.Context) (*models.MessageResult, error)
}

// Handler обрабатывает HTTP-запросы для выхода.
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

// ServeHTTP выполняет выход. Локальная сессия очищается и при ошибке бэкенда,
// ошибка при этом всё равно возвращается клиенту.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

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

	res, err := svc.Logout(r.Context())
	if err != nil {
		log.Info("backend logout failed", sl.Err(err))
		code, body := response.BackendError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
