package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"accountability-service/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "accountability.complaints"
	// QueueName is the durable queue the notification service drains.
	QueueName = "accountability.complaint.events"

	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

var routingKeys = []string{
	model.RoutingKeyComplaintFiled,
	model.RoutingKeyStatusUpdated,
	model.RoutingKeyComplaintEscalated,
}

// Publisher delivers one outbox message to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg model.OutboxMessage) error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.RWMutex
	done    chan struct{}
}

func NewRabbitMQ(host, port, user, password string) (*RabbitMQ, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, host, port)

	rmq := &RabbitMQ{
		url:  url,
		done: make(chan struct{}),
	}

	if err := rmq.connect(); err != nil {
		return nil, err
	}

	go rmq.handleReconnect()

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	var err error

	r.conn, err = amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = r.channel.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = r.channel.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := r.channel.QueueBind(QueueName, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue with key %s: %w", key, err)
		}
	}

	log.Printf("rabbitmq: connected, exchange %s bound to %d routing keys", ExchangeName, len(routingKeys))
	return nil
}

func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()

		select {
		case <-r.done:
			return
		case err := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
			if err != nil {
				log.Printf("rabbitmq: connection lost: %v, reconnecting", err)
			}

			r.mu.Lock()
			for {
				select {
				case <-r.done:
					r.mu.Unlock()
					return
				default:
				}
				if err := r.connect(); err != nil {
					log.Printf("rabbitmq: reconnect failed: %v, retrying in %v", err, reconnectDelay)
					time.Sleep(reconnectDelay)
					continue
				}
				break
			}
			r.mu.Unlock()
		}
	}
}

// Publish sends msg persistently with its outbox id as the AMQP message id so
// consumers can drop redeliveries.
func (r *RabbitMQ) Publish(ctx context.Context, msg model.OutboxMessage) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return fmt.Errorf("channel not available")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := r.channel.PublishWithContext(
		ctx,
		ExchangeName,
		msg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Body:         msg.Payload,
			Timestamp:    msg.CreatedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}

	log.Println("rabbitmq: connection closed")
}

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, msg model.OutboxMessage) error {
	log.Printf("outbox: %s %s %s", msg.RoutingKey, msg.ID, msg.Payload)
	return nil
}
