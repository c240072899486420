package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const DLQExchangeName = "saraban.dlq"

// Headers attached to every dead-lettered message.
const (
	HeaderDLQError    = "x-original-error"
	HeaderDLQStage    = "x-failed-at"
	HeaderDLQFailedAt = "x-failed-time"
)

// DLQName is the parking queue for messages published under routingKey.
func DLQName(routingKey string) string {
	return routingKey + ".dlq"
}

func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil)
}

// DeclareDLQQueue declares DLQName(routingKey) and binds it to the DLQ exchange.
func DeclareDLQQueue(ch *amqp091.Channel, routingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(DLQName(routingKey), true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("declare %s: %w", DLQName(routingKey), err)
	}
	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("bind %s: %w", q.Name, err)
	}
	return q, nil
}

func dlqHeaders(reason, stage string, now time.Time) amqp091.Table {
	return amqp091.Table{
		HeaderDLQError:    reason,
		HeaderDLQStage:    stage,
		HeaderDLQFailedAt: now.UTC().Format(time.RFC3339),
	}
}

// PublishToDLQ parks payload under routingKey on the DLQ exchange. stage
// names the step that gave up, e.g. "decode" or "webhook".
func (p *Publisher) PublishToDLQ(routingKey string, payload []byte, reason, stage string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(DLQExchangeName, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp091.Persistent,
		Headers:      dlqHeaders(reason, stage, time.Now()),
	})
}
