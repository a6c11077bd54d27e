package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
)

// NATSPoster publishes notifications as JSON for a remote renderer.
// Each message carries a Nats-Msg-Id so JetStream drops redelivered duplicates.
type NATSPoster struct {
	nc      *nats.Conn
	subject string
}

// envelope is the published message.
type envelope struct {
	Action       string        `json:"action"`
	Notification *Notification `json:"notification,omitempty"`
	ID           string        `json:"id"`
}

const (
	actionPost   = "post"
	actionCancel = "cancel"
)

// NewNATSPoster connects to url and publishes on subject.
func NewNATSPoster(url, subject string) (*NATSPoster, error) {
	nc, err := nats.Connect(url, nats.Name("alarm-clockd-notifications"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSPoster{nc: nc, subject: subject}, nil
}

// Post publishes the notification.
func (p *NATSPoster) Post(ctx context.Context, n Notification) error {
	msgID := n.ID + ":" + string(n.Kind) + ":" + strconv.FormatInt(n.PostedAt.UnixNano(), 10)

	return p.publish(ctx, msgID, envelope{Action: actionPost, Notification: &n, ID: n.ID})
}

// Cancel publishes a cancellation.
func (p *NATSPoster) Cancel(ctx context.Context, id string) error {
	return p.publish(ctx, "", envelope{Action: actionCancel, ID: id})
}

// Close drains the connection.
func (p *NATSPoster) Close() error {
	return p.nc.Drain()
}

func (p *NATSPoster) publish(ctx context.Context, msgID string, e envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload

	if msgID != "" {
		msg.Header.Set(nats.MsgIdHdr, msgID)
	}

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}
