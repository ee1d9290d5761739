// Package events публикует события сессий портала: вход, выход, истечение сессии.
//
// Публикация не влияет на результат операции: ошибка доставки только
// логируется.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/student-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
)

// Type вид события, он же ключ маршрутизации.
type Type string

const (
	TypeLogin          Type = "auth.login"
	TypeRegister       Type = "auth.register"
	TypeLogout         Type = "auth.logout"
	TypeSessionExpired Type = "session.expired"
)

// Event событие сессии.
type Event struct {
	Type       Type      `json:"type"`
	TabID      string    `json:"tab_id"`
	UserID     string    `json:"user_id,omitempty"`
	TgUsername string    `json:"tg_username,omitempty"`
	View       string    `json:"view,omitempty"` // представление, получившее 401
	At         time.Time `json:"at"`
}

// Publisher отправляет события.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop ничего не отправляет.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// AMQPPublisher публикует события в обменник RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       rabbitmq.Channel
	exchange string
	log      *slog.Logger
}

// NewAMQPPublisher создает новый экземпляр AMQPPublisher.
func NewAMQPPublisher(ch rabbitmq.Channel, exchange string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		log:      log,
	}
}

// Publish публикует событие с ключом маршрутизации, равным его типу.
func (p *AMQPPublisher) Publish(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	// *amqp.Channel не допускает одновременных Publish
	p.mu.Lock()
	err := rabbitmq.PublishJSON(p.ch, p.exchange, string(e.Type), e)
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("failed to publish event",
			slog.String("type", string(e.Type)),
			slog.String("tab_id", e.TabID),
			sl.Err(err),
		)
	}
}
