// Package notify delivers password-reset tokens to users. The production
// implementation queues a message for the mailer service over RabbitMQ; the
// log publisher is the fallback for local development without a broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ResetMailMessage is the payload consumed by the mailer service.
type ResetMailMessage struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RabbitMQPublisher queues reset-mail messages on a durable queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQPublisher(url, queueName string) (*RabbitMQPublisher, error) {
	const op = "notify.NewRabbitMQPublisher"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQPublisher{conn: conn, channel: ch, queue: q}, nil
}

func (p *RabbitMQPublisher) SendResetMail(ctx context.Context, email, token string, expiresAt time.Time) error {
	const op = "notify.SendResetMail"

	body, err := json.Marshal(ResetMailMessage{Email: email, Token: token, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return p.channel.PublishWithContext(
		ctx,
		"",
		p.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (p *RabbitMQPublisher) Close() {
	_ = p.channel.Close()
	_ = p.conn.Close()
}
