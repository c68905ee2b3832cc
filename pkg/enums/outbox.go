package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
}

// IsValid checks whether the aggregate type is known.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType enumerates the webhook events carried by the outbox.
// The value doubles as the webhook_type discriminator in outbound payloads.
type OutboxEventType string

const (
	EventPaymentSuccessful OutboxEventType = "payment_successful"
	EventOrderShipped      OutboxEventType = "order_shipped"
	EventOrderDelivered    OutboxEventType = "order_delivered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentSuccessful,
	EventOrderShipped,
	EventOrderDelivered,
}

// IsValid checks whether the event type is known.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw strings into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
