package notify

import (
	"context"
	"fmt"

	"clipbook/pkg/kafka"
	"clipbook/pkg/logger"
)

const eventSource = "clipbook"

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaNotifier publishes booking events for a downstream notification
// consumer to deliver.
type KafkaNotifier struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaNotifier(producer publisher, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		log:      log,
	}
}

func (n *KafkaNotifier) BookingConfirmed(ctx context.Context, ev Event) error {
	return n.publish(ctx, EventBookingConfirmed, ev)
}

func (n *KafkaNotifier) BookingCancelled(ctx context.Context, ev Event) error {
	return n.publish(ctx, EventBookingCancelled, ev)
}

func (n *KafkaNotifier) BookingForceCancelled(ctx context.Context, ev Event) error {
	return n.publish(ctx, EventBookingForceCancelled, ev)
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType string, ev Event) error {
	msg, err := kafka.NewMessage().
		WithKey(ev.BookingID).
		WithValue(ev).
		WithEventType(eventType).
		WithSource(eventSource).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	if err := n.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	n.log.Debug("Booking event published", "event", eventType, "booking_id", ev.BookingID)
	return nil
}
