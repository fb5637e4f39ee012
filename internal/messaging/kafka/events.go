package kafka

import "time"

// EventType определяет тип события жизненного цикла checkout.
type EventType string

const (
	// Checkout события
	EventTypeCheckoutStarted   EventType = "checkout.started"
	EventTypeCheckoutPaid      EventType = "checkout.paid"
	EventTypeCheckoutFailed    EventType = "checkout.failed"
	EventTypeCheckoutAbandoned EventType = "checkout.abandoned"

	// Order события
	EventTypeDeliveryConfirmed EventType = "order.delivery_confirmed"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "checkout.events"
)

// CheckoutEvent представляет событие checkout-потока.
// Ключ партиционирования — merchant uid, чтобы события одной сессии
// читались в порядке публикации.
type CheckoutEvent struct {
	EventType   EventType              `json:"event_type"`
	MerchantUID string                 `json:"merchant_uid"`
	OrderID     string                 `json:"order_id,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создает новое событие checkout.
func NewCheckoutEvent(eventType EventType, merchantUID, orderID string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType:   eventType,
		MerchantUID: merchantUID,
		OrderID:     orderID,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}
