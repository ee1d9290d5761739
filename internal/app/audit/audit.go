// Package audit читает события сессий портала из RabbitMQ и пишет их в журнал.
package audit

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/student-portal/internal/config"
	"github.com/magabrotheeeer/student-portal/internal/events"
	"github.com/magabrotheeeer/student-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
)

// App обработчик очереди аудита.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queues  []rabbitmq.QueueConfig
	auditor *events.Auditor
	logger  *slog.Logger
}

// New подключается к RabbitMQ и объявляет очереди аудита.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.AuditQueues()
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &App{
		conn:    conn,
		ch:      ch,
		queues:  queues,
		auditor: events.NewAuditor(logger),
		logger:  logger,
	}, nil
}

// Run обрабатывает сообщения до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range a.queues {
		err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, a.auditor.Handle)
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("audit service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
