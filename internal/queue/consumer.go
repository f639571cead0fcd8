package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads swap events from the durable queue the API publishes to.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewConsumer(url, queue string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// must match the declaration in notifications.RabbitNotifier
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: queue}, nil
}

// Deliveries starts consuming with manual acks.
func (c *Consumer) Deliveries(tag string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(c.queue, tag, false, false, false, false, nil)
}

func (c *Consumer) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
