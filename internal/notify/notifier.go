// Package notify is the notification boundary. The coordinator reports
// booking outcomes here; rendering and delivery (email, SMS) happen in a
// downstream consumer. Failures are always non-fatal to the booking itself.
package notify

import (
	"context"

	"clipbook/pkg/logger"
)

const (
	EventBookingConfirmed      = "booking.confirmed"
	EventBookingCancelled      = "booking.cancelled"
	EventBookingForceCancelled = "booking.force_cancelled"
)

// Event carries everything a downstream notifier needs to contact the
// customer about a booking.
type Event struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserPhone string `json:"user_phone"`
	Service   string `json:"service"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, ev Event) error
	BookingCancelled(ctx context.Context, ev Event) error
	BookingForceCancelled(ctx context.Context, ev Event) error
}

// NoopNotifier is used when no event transport is configured.
type NoopNotifier struct {
	log *logger.Logger
}

func NewNoopNotifier(log *logger.Logger) *NoopNotifier {
	return &NoopNotifier{log: log}
}

func (n *NoopNotifier) BookingConfirmed(_ context.Context, ev Event) error {
	n.log.Debug("Notification skipped, no transport configured", "event", EventBookingConfirmed, "booking_id", ev.BookingID)
	return nil
}

func (n *NoopNotifier) BookingCancelled(_ context.Context, ev Event) error {
	n.log.Debug("Notification skipped, no transport configured", "event", EventBookingCancelled, "booking_id", ev.BookingID)
	return nil
}

func (n *NoopNotifier) BookingForceCancelled(_ context.Context, ev Event) error {
	n.log.Debug("Notification skipped, no transport configured", "event", EventBookingForceCancelled, "booking_id", ev.BookingID)
	return nil
}
