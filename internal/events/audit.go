package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
)

// Auditor пишет события сессий из очереди аудита в журнал.
type Auditor struct {
	log *slog.Logger
}

// NewAuditor создает новый экземпляр Auditor.
func NewAuditor(log *slog.Logger) *Auditor {
	return &Auditor{log: log}
}

// Handle обрабатывает тело одного сообщения. Нечитаемое сообщение
// подтверждается и только логируется, иначе оно вернётся в очередь навсегда.
func (a *Auditor) Handle(body []byte) error {
	const op = "events.Auditor.Handle"

	e, err := Decode(body)
	if err != nil {
		a.log.Error("dropping malformed event", slog.String("op", op), sl.Err(err))
		return nil
	}

	a.log.Info("session event",
		slog.String("type", string(e.Type)),
		slog.String("tab_id", e.TabID),
		slog.String("user_id", e.UserID),
		slog.String("tg_username", e.TgUsername),
		slog.String("view", e.View),
		slog.Time("at", e.At),
	)
	return nil
}

// Decode разбирает событие из тела сообщения.
func Decode(body []byte) (Event, error) {
	const op = "events.Decode"
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("%s: event type is empty", op)
	}
	return e, nil
}
