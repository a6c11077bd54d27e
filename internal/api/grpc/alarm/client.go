package alarm

import (
	"context"

	"google.golang.org/grpc"
)

// Client is the AlarmClock client stub.
type Client struct {
	cc grpc.ClientConnInterface
}

var _ API = (*Client)(nil)

// NewClient builds a stub on top of an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// CallOptions are the call options every AlarmClock call needs.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(CodecName)}
}

// List implements API.
func (c *Client) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, MethodList, req)
}

// Get implements API.
func (c *Client) Get(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodGet, req)
}

// Save implements API.
func (c *Client) Save(ctx context.Context, req *SaveRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodSave, req)
}

// Toggle implements API.
func (c *Client) Toggle(ctx context.Context, req *ToggleRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodToggle, req)
}

// Delete implements API.
func (c *Client) Delete(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodDelete, req)
}

// Undo implements API.
func (c *Client) Undo(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodUndo, req)
}

// Snooze implements API.
func (c *Client) Snooze(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodSnooze, req)
}

// Dismiss implements API.
func (c *Client) Dismiss(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodDismiss, req)
}

// CompleteMission implements API.
func (c *Client) CompleteMission(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodCompleteMission, req)
}

// MissionTimeout implements API.
func (c *Client) MissionTimeout(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return invoke[AlarmResponse](ctx, c.cc, MethodMissionTimeout, req)
}

// Trigger implements API.
func (c *Client) Trigger(ctx context.Context, req *TriggerRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodTrigger, req)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any) (*Resp, error) {
	resp := new(Resp)

	if err := cc.Invoke(ctx, FullMethod(method), req, resp, CallOptions()...); err != nil {
		return nil, err
	}

	return resp, nil
}
