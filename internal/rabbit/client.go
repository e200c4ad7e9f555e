package rabbit

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// ErrDrop marks a message that can never be processed. It is rejected without requeue.
var ErrDrop = errors.New("drop message")

type Handler func(ctx context.Context, body []byte) error

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewRabbit connects and declares a durable direct exchange with one queue bound
// under the queue name as routing key.
func NewRabbit(url, exchange, queue string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		zlog.Logger.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to declare queue")
		return nil, err
	}

	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to bind queue")
		return nil, err
	}

	// one unacked job per consumer keeps completion ordered per worker
	if err := ch.Qos(1, 0, false); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to set prefetch")
		return nil, err
	}

	zlog.Logger.Info().
		Str("exchange", exchange).
		Str("queue", queue).
		Msg("RabbitMQ initialized")

	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	zlog.Logger.Info().Msg("RabbitMQ connection closed")
}

// Publish sends a persistent JSON message to the job queue.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(
		ctx,
		c.exchange,
		c.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to publish message to RabbitMQ")
		return err
	}
	zlog.Logger.Debug().Str("exchange", c.exchange).Msg("message published")
	return nil
}

// Consume delivers queued messages to handler until ctx is done or the channel closes.
// Messages are acked on success, dropped on ErrDrop and requeued on any other error.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to start consuming messages")
		return err
	}

	zlog.Logger.Info().Str("queue", c.queue).Msg("started consuming")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			settle(ctx, d, handler)
		}
	}
}

func settle(ctx context.Context, d amqp.Delivery, handler Handler) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDrop):
		zlog.Logger.Warn().Err(err).Msg("dropping message")
		_ = d.Nack(false, false)
	default:
		zlog.Logger.Warn().Err(err).Msg("failed to process message, requeueing")
		_ = d.Nack(false, !d.Redelivered)
	}
}
