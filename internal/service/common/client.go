//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Client wraps the AlarmClock gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the AlarmClock client stub.
	api api.API
	// actor is attached to every call; nil sends anonymous calls.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the actor to every call.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errIDRequired is returned when an alarm id is not provided.
	errIDRequired = errors.New("alarm id must be provided")
)

// Dial establishes a gRPC connection to the daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(api.CallOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("dial alarm daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// List returns every alarm ordered by time of day.
func (c *Client) List(ctx context.Context) ([]*api.AlarmMessage, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.List(callCtx, new(api.ListRequest))
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return response.Alarms, nil
}

// Get returns a single alarm.
func (c *Client) Get(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "get alarm", id, api.API.Get)
}

// Save creates or updates an alarm.
func (c *Client) Save(ctx context.Context, alarm *api.AlarmMessage) (*api.AlarmResponse, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Save(callCtx, &api.SaveRequest{Alarm: alarm})
	if err != nil {
		return nil, fmt.Errorf("save alarm: %w", err)
	}

	return response, nil
}

// Toggle enables or disables an alarm.
func (c *Client) Toggle(ctx context.Context, id string, enabled bool) (*api.AlarmResponse, error) {
	if id == "" {
		return nil, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Toggle(callCtx, &api.ToggleRequest{ID: id, Enabled: enabled})
	if err != nil {
		return nil, fmt.Errorf("toggle alarm: %w", err)
	}

	return response, nil
}

// Delete removes an alarm.
func (c *Client) Delete(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "delete alarm", id, api.API.Delete)
}

// Undo restores a deleted alarm.
func (c *Client) Undo(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "undo delete", id, api.API.Undo)
}

// Snooze pauses a ringing alarm.
func (c *Client) Snooze(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "snooze alarm", id, api.API.Snooze)
}

// Dismiss ends the ring episode.
func (c *Client) Dismiss(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "dismiss alarm", id, api.API.Dismiss)
}

// CompleteMission records the completion of the current mission.
func (c *Client) CompleteMission(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "complete mission", id, api.API.CompleteMission)
}

// MissionTimeout reports that the current mission ran out of time.
func (c *Client) MissionTimeout(ctx context.Context, id string) (*api.AlarmResponse, error) {
	return c.byID(ctx, "report mission timeout", id, api.API.MissionTimeout)
}

// Trigger injects a trigger into the daemon dispatcher.
func (c *Client) Trigger(ctx context.Context, id string, kind domain.TriggerKind) error {
	if id == "" {
		return errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Trigger(callCtx, &api.TriggerRequest{ID: id, Kind: string(kind)}); err != nil {
		return fmt.Errorf("inject trigger: %w", err)
	}

	return nil
}

func (c *Client) byID(
	ctx context.Context,
	operation string,
	id string,
	call func(client api.API, ctx context.Context, req *api.IDRequest) (*api.AlarmResponse, error),
) (*api.AlarmResponse, error) {
	if id == "" {
		return nil, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := call(c.api, callCtx, &api.IDRequest{ID: id})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor rides along
// as call metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.actor.OutgoingContext(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
