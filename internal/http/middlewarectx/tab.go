// Package middlewarectx содержит HTTP middleware веб-фронта портала.
//
// TabMiddleware связывает запрос с вкладкой клиента по cookie и кладёт вкладку
// в контекст запроса. RateLimitMiddleware ограничивает частоту запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/student-portal/internal/tab"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// TabKey ключ вкладки в контексте.
const TabKey Key = "tab"

// CookieName имя cookie с идентификатором вкладки.
const CookieName = "portal_tab"

// Registry выдаёт вкладку по идентификатору.
type Registry interface {
	Get(id string) *tab.Tab
}

// TabMiddleware находит вкладку по cookie или заводит новую.
//
// Идентификатор вкладки это UUID; cookie с любым другим значением заменяется.
func TabMiddleware(registry Registry, secure bool, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.TabMiddleware"

			id := ""
			if c, err := r.Cookie(CookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debug("new tab",
					slog.String("op", op),
					slog.String("tab_id", id),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
			}

			next.ServeHTTP(w, r.WithContext(WithTab(r.Context(), registry.Get(id))))
		})
	}
}

// WithTab возвращает контекст с вкладкой t.
func WithTab(ctx context.Context, t *tab.Tab) context.Context {
	return context.WithValue(ctx, TabKey, t)
}

// TabFromContext возвращает вкладку запроса.
func TabFromContext(ctx context.Context) (*tab.Tab, bool) {
	t, ok := ctx.Value(TabKey).(*tab.Tab)
	return t, ok && t != nil
}

// Resolve достаёт вкладку запроса в виде интерфейса S, который нужен обработчику.
func Resolve[S any](ctx context.Context) (S, bool) {
	var zero S
	t, ok := TabFromContext(ctx)
	if !ok {
		return zero, false
	}
	s, ok := any(t).(S)
	return s, ok
}
