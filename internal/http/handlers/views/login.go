package views

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/student-portal/internal/http/response"
	"github.com/magabrotheeeer/student-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/session"
)

// SessionSource даёт хранилище сессии вкладки.
type SessionSource interface {
	Store() *session.Store
}

// LoginPageHandler экран входа: сообщает, есть ли у вкладки активная сессия.
// Сессия с заведомо истёкшим access-токеном активной не считается; токен,
// который не удалось разобрать, проверит бэкенд при первом запросе.
type LoginPageHandler struct {
	log     *slog.Logger
	resolve func(ctx context.Context) (SessionSource, bool)
}

// NewLoginPage создает новый экземпляр LoginPageHandler.
func NewLoginPage(log *slog.Logger, resolve func(ctx context.Context) (SessionSource, bool)) *LoginPageHandler {
	return &LoginPageHandler{log: log, resolve: resolve}
}

func (h *LoginPageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if src, ok := h.resolve(r.Context()); ok {
		sess, err := src.Store().Get(r.Context())
		if err != nil {
			h.log.Error("failed to read session", slog.String("op", "handlers.views.login"), sl.Err(err))
		}
		authenticated = sess.Authenticated() && !expired(sess.AccessToken)
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"view":          "login",
		"authenticated": authenticated,
	}))
}

func expired(token string) bool {
	claims, err := jwt.Parse(token)
	if err != nil {
		return false
	}
	return claims.Expired(time.Now())
}
