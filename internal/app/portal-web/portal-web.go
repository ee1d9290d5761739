package portalweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/student-portal/internal/cache"
	"github.com/magabrotheeeer/student-portal/internal/config"
	"github.com/magabrotheeeer/student-portal/internal/events"
	"github.com/magabrotheeeer/student-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/student-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
	"github.com/magabrotheeeer/student-portal/internal/metrics"
	"github.com/magabrotheeeer/student-portal/internal/session"
	"github.com/magabrotheeeer/student-portal/internal/tab"
	"github.com/magabrotheeeer/student-portal/internal/transport"
)

const (
	driverMemory = "memory"
	driverRedis  = "redis"
)

// App веб-фронт портала.
type App struct {
	server        *http.Server
	logger        *slog.Logger
	registry      *tab.Registry
	sweepInterval time.Duration
	closers       []io.Closer
	checks        map[string]health.Check
}

// New собирает зависимости веб-фронта по конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "portalweb.New"

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app := &App{
		logger:        logger,
		sweepInterval: cfg.SweepInterval,
		checks:        make(map[string]health.Check),
	}

	backend, err := app.sessionBackend(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publisher, err := app.eventPublisher(cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := transport.New(cfg.BaseURL, &http.Client{Timeout: cfg.TimeoutAPI}, nil, logger, m)

	app.registry = tab.NewRegistry(tab.Deps{
		Transport:  client,
		Backend:    backend,
		ProfileTTL: cfg.ProfileCache.TTL,
		Events:     publisher,
		Metrics:    m,
		Log:        logger,
	}, cfg.IdleTTL)

	router := chi.NewRouter()
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	RegisterRoutes(router, logger, app.registry, limiter, cfg.SecureCookie,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), app.checks)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) sessionBackend(ctx context.Context, cfg *config.Config) (session.Backend, error) {
	switch cfg.Driver {
	case driverRedis:
		c, err := cache.InitServer(ctx, cfg.RedisConnection, cfg.KeyPrefix, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c)
		a.checks["session_store"] = c.Ping
		a.logger.Info("session store", slog.String("driver", driverRedis), slog.String("addr", cfg.AddressRedis))
		return c, nil
	case driverMemory, "":
		a.logger.Warn("session store is in memory, sessions are lost on restart")
		return session.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func (a *App) eventPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		a.logger.Info("rabbitmq url is empty, events are not published")
		return events.Nop{}, nil
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn)
	a.checks["rabbitmq"] = func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("connection is closed")
		}
		return nil
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.AuditQueues())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ch)
	return events.NewAMQPPublisher(ch, cfg.Exchange, a.logger), nil
}

// Run запускает HTTP-сервер и выселение неактивных вкладок до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if a.sweepInterval > 0 {
		go a.registry.Run(sweepCtx, a.sweepInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close освобождает соединения в обратном порядке открытия.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
