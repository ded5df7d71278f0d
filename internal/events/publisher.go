package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/streadway/amqp"

	"stylehub/internal/models"
)

const orderEventQueue = "order_events"

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Publisher pushes order lifecycle events onto a durable RabbitMQ queue for
// downstream consumers (fulfillment, notifications). A nil Publisher is
// valid and drops every event, so the broker stays optional.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// OrderEvent is the wire shape of every published event.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewPublisher connects to RabbitMQ and declares the order event queue.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		orderEventQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", orderEventQueue, err)
	}

	log.Println("[EVENTS] connected, queue declared:", orderEventQueue)

	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close publisher: %v", errs)
	}
	return nil
}

// OrderCreated publishes an order.created event. Failures are logged, never
// surfaced: event delivery must not fail a checkout.
func (p *Publisher) OrderCreated(o models.Order) {
	p.publish(OrderEvent{
		Type:        TypeOrderCreated,
		OrderID:     o.ID.Hex(),
		OrderNumber: o.OrderNumber,
		UserID:      o.User.Hex(),
		Status:      o.OrderStatus,
		Total:       o.Pricing.Total,
		OccurredAt:  time.Now(),
	})
}

// OrderStatusChanged publishes an order.status_changed event.
func (p *Publisher) OrderStatusChanged(o models.Order) {
	p.publish(OrderEvent{
		Type:        TypeOrderStatusChanged,
		OrderID:     o.ID.Hex(),
		OrderNumber: o.OrderNumber,
		UserID:      o.User.Hex(),
		Status:      o.OrderStatus,
		Total:       o.Pricing.Total,
		OccurredAt:  time.Now(),
	})
}

func (p *Publisher) publish(event OrderEvent) {
	if p == nil || p.channel == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Println("[EVENTS] [ERROR] marshal event:", err)
		return
	}

	err = p.channel.Publish(
		"",              // default exchange
		orderEventQueue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		log.Println("[EVENTS] [ERROR] publish", event.Type, "for order", event.OrderNumber+":", err)
		return
	}

	log.Println("[EVENTS] published", event.Type, "for order", event.OrderNumber)
}
