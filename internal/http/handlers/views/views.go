// Package views отдаёт представления портала по HTTP.
//
// Каждый запрос монтирует представление вкладки, ждёт завершения загрузки и
// отключает его. Состояние Redirecting превращается в 303 на маршрут, куда
// представление выполнило переход; повтор запроса после входа снова
// загрузит данные.
package views

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/student-portal/internal/apierr"
	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/view"
)

// redirectNav запоминает переход, выполненный представлением.
type redirectNav struct {
	mu    sync.Mutex
	route string
}

func (n *redirectNav) Replace(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
}

func (n *redirectNav) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.route == "" {
		return view.LoginRoute
	}
	return n.route
}

// load монтирует v и ждёт результата. При refresh после успешной загрузки
// данные перезапрашиваются в обход кеша.
func load[T any](ctx context.Context, v *view.View[T], refresh bool) (view.State[T], error) {
	v.Mount(ctx)
	st, err := v.Wait(ctx)
	if err != nil || !refresh || st.Status != view.StatusReady {
		return st, err
	}
	v.Refetch(ctx)
	return v.Wait(ctx)
}

func writeState[T any](w http.ResponseWriter, r *http.Request, log *slog.Logger, nav *redirectNav, st view.State[T]) {
	switch st.Status {
	case view.StatusReady:
		render.JSON(w, r, response.OKWithData(st.Data))
	case view.StatusRedirecting:
		http.Redirect(w, r, nav.Route(), http.StatusSeeOther)
	case view.StatusFailed:
		code, body := response.BackendError(st.Err)
		var re *apierr.RequestError
		if errors.As(st.Err, &re) {
			body = response.Error(st.Message)
		} else {
			log.Error("view load failed", sl.Err(st.Err))
		}
		render.Status(r, code)
		render.JSON(w, r, body)
	default:
		log.Error("view finished without a terminal state", slog.String("status", st.Status.String()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
	}
}
