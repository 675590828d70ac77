// Package rabbitmq содержит подключение к RabbitMQ и настройку
// топологии обменника событий реестра. События подписок публикуются
// в direct-обменник subscription-events и раскладываются по очередям
// для внешних потребителей (индексаторов, зеркальных баз).
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/stablerent/stablerent/internal/models"
)

// ExchangeName имя обменника событий реестра.
const ExchangeName = "subscription-events"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// DefaultQueues очереди для четырёх событий реестра.
func DefaultQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscription-events.created", RoutingKey: models.RoutingKeySubscriptionCreated},
		{QueueName: "subscription-events.processed", RoutingKey: models.RoutingKeyPaymentProcessed},
		{QueueName: "subscription-events.failed", RoutingKey: models.RoutingKeyPaymentFailed},
		{QueueName: "subscription-events.cancelled", RoutingKey: models.RoutingKeySubscriptionCancelled},
	}
}

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет обменник, очереди и привязки.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			ExchangeName,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
