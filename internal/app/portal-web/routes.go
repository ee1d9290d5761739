// Package portalweb собирает веб-фронт портала: маршруты, вкладки и сервер.
package portalweb

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/student-portal/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/views"
	"github.com/magabrotheeeer/student-portal/internal/http/middlewarectx"
)

// RegisterRoutes регистрирует все маршруты веб-фронта.
func RegisterRoutes(r chi.Router, logger *slog.Logger, registry middlewarectx.Registry, limiter *rate.Limiter, secureCookie bool, metrics http.Handler, checks map[string]health.Check) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	// Группа с вкладкой клиента
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
		r.Use(middlewarectx.TabMiddleware(registry, secureCookie, logger))

		r.Get("/login", views.NewLoginPage(logger, middlewarectx.Resolve[views.SessionSource]).ServeHTTP)
		r.Post("/login", login.New(logger, middlewarectx.Resolve[login.Service]).ServeHTTP)
		r.Post("/register", register.New(logger, middlewarectx.Resolve[register.Service]).ServeHTTP)
		r.Post("/logout", logout.New(logger, middlewarectx.Resolve[logout.Service]).ServeHTTP)
		r.Post("/refresh", refresh.New(logger, middlewarectx.Resolve[refresh.Service]).ServeHTTP)

		r.Get("/profile", views.NewProfile(logger, middlewarectx.Resolve[views.ProfileSource]).ServeHTTP)
		r.Get("/groups", views.NewGroups(logger, middlewarectx.Resolve[views.GroupsSource]).ServeHTTP)
	})

	r.Get("/healthz", health.New(logger, checks).ServeHTTP)
	r.Handle("/metrics", metrics)
}
