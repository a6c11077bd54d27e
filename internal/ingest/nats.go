package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Sink receives decoded triggers.
type Sink interface {
	Submit(trigger domain.Trigger)
}

// ErrMalformedTrigger is returned for messages that do not describe a trigger.
var ErrMalformedTrigger = errors.New("malformed trigger message")

// message is the wire format of an inbound trigger.
type message struct {
	AlarmID string `json:"alarm_id"`
	Kind    string `json:"kind"`
}

// Decode parses and validates a trigger message.
func Decode(data []byte) (domain.Trigger, error) {
	var msg message

	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Trigger{}, fmt.Errorf("%w: %w", ErrMalformedTrigger, err)
	}

	alarmID := strings.TrimSpace(msg.AlarmID)
	if alarmID == "" {
		return domain.Trigger{}, fmt.Errorf("%w: alarm_id is required", ErrMalformedTrigger)
	}

	kind, err := domain.ParseTriggerKind(msg.Kind)
	if err != nil {
		return domain.Trigger{}, fmt.Errorf("%w: %w", ErrMalformedTrigger, err)
	}

	return domain.Trigger{AlarmID: alarmID, Kind: kind}, nil
}

// Encode renders a trigger message.
func Encode(trigger domain.Trigger) ([]byte, error) {
	return json.Marshal(message{AlarmID: trigger.AlarmID, Kind: string(trigger.Kind)})
}

// NATSSubscriber forwards trigger messages from a subject to the sink.
type NATSSubscriber struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

// NewNATSSubscriber connects to url and subscribes to subject.
// Malformed messages are logged and dropped.
func NewNATSSubscriber(ctx context.Context, url, subject string, sink Sink) (*NATSSubscriber, error) {
	ctx = logger.WithName(ctx, "ingest")

	nc, err := nats.Connect(url, nats.Name("alarm-clockd-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		trigger, err := Decode(msg.Data)
		if err != nil {
			logger.WarnKV(ctx, "Dropping trigger message", "subject", msg.Subject, "error", err)

			return
		}

		logger.DebugKV(ctx, "Trigger received", "alarm_id", trigger.AlarmID, "kind", trigger.Kind)
		sink.Submit(trigger)
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("subscribe %q: %w", subject, err)
	}

	// Make sure the server registered the subscription before returning.
	if err := nc.Flush(); err != nil {
		nc.Close()

		return nil, fmt.Errorf("flush subscription %q: %w", subject, err)
	}

	return &NATSSubscriber{nc: nc, sub: sub}, nil
}

// Close unsubscribes and drains the connection.
func (s *NATSSubscriber) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}

	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		s.nc.Close()

		return fmt.Errorf("unsubscribe: %w", err)
	}

	s.nc.Close()

	return nil
}

// Publish sends a trigger to subject on url. It backs the CLI trigger command.
func Publish(url, subject string, trigger domain.Trigger) error {
	payload, err := Encode(trigger)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	if err := nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}

	return nc.Flush()
}
