package views

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/view"
)

// GroupsSource создаёт представление групп вкладки.
type GroupsSource interface {
	NewGroupsView(nav view.Navigator) *view.GroupsView
}

// GroupsHandler отдаёт группы текущего пользователя.
type GroupsHandler struct {
	log     *slog.Logger
	resolve func(ctx context.Context) (GroupsSource, bool)
}

// NewGroups создает новый экземпляр GroupsHandler.
func NewGroups(log *slog.Logger, resolve func(ctx context.Context) (GroupsSource, bool)) *GroupsHandler {
	return &GroupsHandler{log: log, resolve: resolve}
}

func (h *GroupsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.views.groups"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	src, ok := h.resolve(r.Context())
	if !ok {
		log.Error("tab is missing in request context")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	nav := &redirectNav{}
	v := src.NewGroupsView(nav)
	defer v.Unmount()

	st, err := load(r.Context(), v, false)
	if err != nil {
		log.Info("client went away", sl.Err(err))
		return
	}
	writeState(w, r, log, nav, st)
}
