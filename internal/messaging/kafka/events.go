package kafka

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderDeleted EventType = "order.deleted"
)

// AggregateTypeOrder: тип агрегата в outbox.
const AggregateTypeOrder = "order"

// Topics для Kafka
const (
	TopicOrderEvents     = "orders.order.events"
	TopicDeadLetterQueue = "orders.dlq"
)

// Kafka headers для сообщений в DLQ
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent: payload события заказа в outbox.
type OrderEvent struct {
	OrderID      int64     `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	TotalAmount  string    `json:"total_amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewOrderOutboxMessage собирает outbox-сообщение для события заказа.
func NewOrderOutboxMessage(eventType EventType, order *domain.Order, occurredAt time.Time) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(OrderEvent{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount.StringFixed(2),
		OccurredAt:   occurredAt.UTC(),
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return domain.OutboxMessage{
		AggregateType: AggregateTypeOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}, nil
}
