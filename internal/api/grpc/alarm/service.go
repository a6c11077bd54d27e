package alarm

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmclock.v1.AlarmClock"

// Method names of the AlarmClock service.
const (
	MethodList            = "List"
	MethodGet             = "Get"
	MethodSave            = "Save"
	MethodToggle          = "Toggle"
	MethodDelete          = "Delete"
	MethodUndo            = "Undo"
	MethodSnooze          = "Snooze"
	MethodDismiss         = "Dismiss"
	MethodCompleteMission = "CompleteMission"
	MethodMissionTimeout  = "MissionTimeout"
	MethodTrigger         = "Trigger"
)

// API is the AlarmClock service contract shared by the server and the client.
type API interface {
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
	Get(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	Save(ctx context.Context, req *SaveRequest) (*AlarmResponse, error)
	Toggle(ctx context.Context, req *ToggleRequest) (*AlarmResponse, error)
	Delete(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	Undo(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	Snooze(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	Dismiss(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	CompleteMission(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	MissionTimeout(ctx context.Context, req *IDRequest) (*AlarmResponse, error)
	Trigger(ctx context.Context, req *TriggerRequest) (*Empty, error)
}

// ServiceDesc describes the AlarmClock service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are static by construction.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodList, Handler: unary(MethodList, API.List)},
		{MethodName: MethodGet, Handler: unary(MethodGet, API.Get)},
		{MethodName: MethodSave, Handler: unary(MethodSave, API.Save)},
		{MethodName: MethodToggle, Handler: unary(MethodToggle, API.Toggle)},
		{MethodName: MethodDelete, Handler: unary(MethodDelete, API.Delete)},
		{MethodName: MethodUndo, Handler: unary(MethodUndo, API.Undo)},
		{MethodName: MethodSnooze, Handler: unary(MethodSnooze, API.Snooze)},
		{MethodName: MethodDismiss, Handler: unary(MethodDismiss, API.Dismiss)},
		{MethodName: MethodCompleteMission, Handler: unary(MethodCompleteMission, API.CompleteMission)},
		{MethodName: MethodMissionTimeout, Handler: unary(MethodMissionTimeout, API.MissionTimeout)},
		{MethodName: MethodTrigger, Handler: unary(MethodTrigger, API.Trigger)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmclock/v1/alarm_clock.json",
}

// Register attaches the API implementation to the gRPC server.
func Register(registrar grpc.ServiceRegistrar, api API) {
	registrar.RegisterService(&ServiceDesc, api)
}

// FullMethod returns the path of a method, for example "/alarmclock.v1.AlarmClock/List".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds a method handler that decodes Req, runs interceptors and calls the API method.
func unary[Req, Resp any](
	method string,
	call func(API, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	fullMethod := FullMethod(method)

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}

		api, _ := srv.(API)

		if interceptor == nil {
			return call(api, ctx, req)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, request any) (any, error) {
			typed, _ := request.(*Req)

			return call(api, ctx, typed)
		}

		return interceptor(ctx, req, info, handler)
	}
}
