package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"clipbook/pkg/kafka"
	"clipbook/pkg/logger"
)

type capturingPublisher struct {
	messages []kafka.Message
	err      error
}

func (p *capturingPublisher) Publish(_ context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func testEvent() Event {
	return Event{
		BookingID: "b1",
		UserID:    "u1",
		UserName:  "Dana Levi",
		UserPhone: "+12025550117",
		Service:   "Haircut",
		Date:      "2024-07-15",
		Time:      "09:00AM",
	}
}

func newKafkaNotifier(p *capturingPublisher) *KafkaNotifier {
	return NewKafkaNotifier(p, logger.New(logger.Config{
		Level:  logger.LevelError,
		Format: logger.FormatJSON,
		Output: io.Discard,
	}))
}

func TestKafkaNotifier_PublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	n := newKafkaNotifier(pub)

	if err := n.BookingConfirmed(context.Background(), testEvent()); err != nil {
		t.Fatalf("BookingConfirmed failed: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("Expected one message, got %d", len(pub.messages))
	}

	msg := pub.messages[0]
	if msg.Key != "b1" {
		t.Errorf("Expected key b1, got %s", msg.Key)
	}
	if msg.Headers[kafka.HeaderEventType] != EventBookingConfirmed {
		t.Errorf("Expected event type %s, got %s", EventBookingConfirmed, msg.Headers[kafka.HeaderEventType])
	}
	if msg.Headers[kafka.HeaderSource] != "clipbook" {
		t.Errorf("Expected source clipbook, got %s", msg.Headers[kafka.HeaderSource])
	}
	if msg.Headers[kafka.HeaderEventID] == "" {
		t.Error("Expected an event-id header")
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if decoded != testEvent() {
		t.Errorf("Payload mismatch: %+v", decoded)
	}
}

func TestKafkaNotifier_EventTypes(t *testing.T) {
	pub := &capturingPublisher{}
	n := newKafkaNotifier(pub)

	ctx := context.Background()
	if err := n.BookingCancelled(ctx, testEvent()); err != nil {
		t.Fatalf("BookingCancelled failed: %v", err)
	}
	if err := n.BookingForceCancelled(ctx, testEvent()); err != nil {
		t.Fatalf("BookingForceCancelled failed: %v", err)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("Expected two messages, got %d", len(pub.messages))
	}
	if got := pub.messages[0].Headers[kafka.HeaderEventType]; got != EventBookingCancelled {
		t.Errorf("Expected %s, got %s", EventBookingCancelled, got)
	}
	if got := pub.messages[1].Headers[kafka.HeaderEventType]; got != EventBookingForceCancelled {
		t.Errorf("Expected %s, got %s", EventBookingForceCancelled, got)
	}
}

func TestKafkaNotifier_PublishFailure(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker unreachable")}
	n := newKafkaNotifier(pub)

	if err := n.BookingConfirmed(context.Background(), testEvent()); err == nil {
		t.Error("Expected publish failure to surface")
	}
}
