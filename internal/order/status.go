package order

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/models"
)

// Order statuses. The forward chain runs top to bottom; cancelled and
// returned are side exits.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusProcessing     = "processing"
	StatusShipped        = "shipped"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
	StatusReturned       = "returned"
)

// Payment statuses.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

const (
	RefundPending = "pending"
)

var forwardChain = []string{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

// TransitionError reports a disallowed status change.
type TransitionError struct {
	From string
	To   string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func chainIndex(status string) int {
	for i, s := range forwardChain {
		if s == status {
			return i
		}
	}
	return -1
}

// allowedTransition enforces the state machine: any forward move along the
// chain, cancellation from the first three states, return after delivery.
func allowedTransition(from, to string) bool {
	switch to {
	case StatusCancelled:
		switch from {
		case StatusPending, StatusConfirmed, StatusProcessing:
			return true
		}
		return false
	case StatusReturned:
		return from == StatusDelivered
	}

	fromIdx, toIdx := chainIndex(from), chainIndex(to)
	if fromIdx < 0 || toIdx < 0 {
		return false
	}
	return toIdx > fromIdx
}

// UpdateStatus applies a status transition: exactly one timeline entry is
// appended and the status-specific timestamp fields are stamped. The order
// is mutated in place; the caller persists it.
func UpdateStatus(o *models.Order, newStatus, note string, actor *primitive.ObjectID, now time.Time) error {
	if !allowedTransition(o.OrderStatus, newStatus) {
		return TransitionError{From: o.OrderStatus, To: newStatus}
	}
	if note == "" {
		note = "Status updated to: " + newStatus
	}

	o.OrderStatus = newStatus
	o.Timeline = append(o.Timeline, models.TimelineEntry{
		Status:    newStatus,
		Date:      now,
		Note:      note,
		UpdatedBy: actor,
	})

	switch newStatus {
	case StatusShipped:
		o.Shipping.ShippedAt = &now
	case StatusDelivered:
		o.Shipping.DeliveredAt = &now
	case StatusCancelled:
		if o.Cancellation == nil {
			o.Cancellation = &models.Cancellation{}
		}
		o.Cancellation.CancelledAt = &now
		o.Cancellation.CancelledBy = actor
	}

	o.UpdatedAt = now
	return nil
}

// Cancel records the cancellation reason and, for paid orders, a pending
// refund for the full total, then transitions to cancelled.
func Cancel(o *models.Order, reason string, actor *primitive.ObjectID, now time.Time) error {
	if !CanBeCancelled(o) {
		return TransitionError{From: o.OrderStatus, To: StatusCancelled}
	}
	o.Cancellation = &models.Cancellation{Reason: reason}
	if o.PaymentStatus == PaymentPaid {
		o.Cancellation.RefundAmount = o.Pricing.Total
		o.Cancellation.RefundStatus = RefundPending
	}
	return UpdateStatus(o, StatusCancelled, "Order cancelled: "+reason, actor, now)
}

// ProcessPayment merges the payment details, stamps the payment date,
// marks the order paid and transitions it to confirmed.
func ProcessPayment(o *models.Order, payment models.OrderPayment, now time.Time) error {
	if o.PaymentStatus == PaymentPaid {
		return fmt.Errorf("order %s is already paid", o.OrderNumber)
	}
	if o.OrderStatus != StatusPending {
		return TransitionError{From: o.OrderStatus, To: StatusConfirmed}
	}

	if payment.PaymentID != "" {
		o.Payment.PaymentID = payment.PaymentID
	}
	if payment.TransactionID != "" {
		o.Payment.TransactionID = payment.TransactionID
	}
	if payment.Gateway != "" {
		o.Payment.Gateway = payment.Gateway
	}
	o.Payment.PaymentDate = &now
	o.PaymentStatus = PaymentPaid

	return UpdateStatus(o, StatusConfirmed, "Payment processed successfully", nil, now)
}

// CanBeCancelled reports whether the order is early enough in its life to
// cancel.
func CanBeCancelled(o *models.Order) bool {
	switch o.OrderStatus {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}
