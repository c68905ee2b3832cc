package orders

import "github.com/adorncommerce/adorn-backend/pkg/enums"

// Fulfillment and payment run as separate state machines on the same row.
// A cancelled order keeps whatever payment state it had; refund handling is
// a staff workflow outside this service.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
}

var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending:  {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusFailed:   {enums.PaymentStatusPaid, enums.PaymentStatusPending},
	enums.PaymentStatusPaid:     {enums.PaymentStatusRefunded},
	enums.PaymentStatusRefunded: {},
}

// CanTransition reports whether the fulfillment status may move from one
// state to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether the payment status may move from one
// state to another.
func CanTransitionPayment(from, to enums.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// paymentSources lists the states allowed to move into to, plus to itself
// so replayed settlements stay no-ops.
func paymentSources(to enums.PaymentStatus) []enums.PaymentStatus {
	sources := []enums.PaymentStatus{to}
	for from, targets := range paymentTransitions {
		for _, target := range targets {
			if target == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}
