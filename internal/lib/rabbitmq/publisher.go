package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AppID отправитель, указываемый в свойствах сообщения.
const AppID = "student-portal"

// Channel часть *amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishJSON публикует message в exchange как постоянное JSON-сообщение.
// Тип сообщения совпадает с ключом маршрутизации, у каждого сообщения свой MessageId.
func PublishJSON(ch Channel, exchange, routingKey string, message any) error {
	const op = "rabbitmq.PublishJSON"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         routingKey,
		AppId:        AppID,
		Body:         body,
	}
	if err := ch.Publish(exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("%s: %s: %w", op, routingKey, err)
	}
	return nil
}
