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

// ProfileSource создаёт представление профиля вкладки.
type ProfileSource interface {
	NewProfileView(nav view.Navigator) *view.ProfileView
}

// ProfileHandler отдаёт профиль текущего пользователя. ?refresh=1 запрашивает
// профиль в обход кеша.
type ProfileHandler struct {
	log     *slog.Logger
	resolve func(ctx context.Context) (ProfileSource, bool)
}

// NewProfile создает новый экземпляр ProfileHandler.
func NewProfile(log *slog.Logger, resolve func(ctx context.Context) (ProfileSource, bool)) *ProfileHandler {
	return &ProfileHandler{log: log, resolve: resolve}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.views.profile"

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
	v := src.NewProfileView(nav)
	defer v.Unmount()

	st, err := load(r.Context(), v, r.URL.Query().Get("refresh") == "1")
	if err != nil {
		log.Info("client went away", sl.Err(err))
		return
	}
	writeState(w, r, log, nav, st)
}
