package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/lifecycle"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Service abstracts the lifecycle operations the transport layer depends on.
type Service interface {
	List(ctx context.Context) ([]*domain.Alarm, error)
	Get(ctx context.Context, id string) (*domain.Alarm, error)
	Save(ctx context.Context, input *domain.Alarm) (lifecycle.Result, error)
	Toggle(ctx context.Context, id string, enabled bool) (lifecycle.Result, error)
	Delete(ctx context.Context, id string) (lifecycle.Result, error)
	Undo(ctx context.Context, id string) (lifecycle.Result, error)
	Snooze(ctx context.Context, id string) (lifecycle.Result, error)
	Dismiss(ctx context.Context, id string) (lifecycle.Result, error)
	MissionCompleted(ctx context.Context, id string) (lifecycle.Result, error)
	MissionTimedOut(ctx context.Context, id string) (lifecycle.Result, error)
}

// TriggerSink accepts injected triggers.
type TriggerSink interface {
	Submit(trigger domain.Trigger)
}

// Server implements the AlarmClock gRPC API.
type Server struct {
	// service provides the lifecycle operations.
	service Service
	// sink receives triggers injected through the Trigger method; nil disables it.
	sink TriggerSink
}

var _ API = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, sink TriggerSink) *Server {
	return &Server{
		service: service,
		sink:    sink,
	}
}

// List returns every alarm ordered by time of day.
func (s *Server) List(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	alarms, err := s.service.List(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	response := &ListResponse{Alarms: make([]*AlarmMessage, 0, len(alarms))}
	for _, a := range alarms {
		response.Alarms = append(response.Alarms, ToAlarmMessage(a))
	}

	return response, nil
}

// Get returns a single alarm.
func (s *Server) Get(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	if err := requireID(req); err != nil {
		return nil, err
	}

	a, err := s.service.Get(ctx, req.ID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return &AlarmResponse{Alarm: ToAlarmMessage(a)}, nil
}

// Save creates or updates an alarm.
func (s *Server) Save(ctx context.Context, req *SaveRequest) (*AlarmResponse, error) {
	if req == nil || req.Alarm == nil {
		return nil, status.Error(codes.InvalidArgument, "alarm is required")
	}

	input, err := req.Alarm.ToDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return s.result(ctx, func() (lifecycle.Result, error) {
		return s.service.Save(ctx, input)
	})
}

// Toggle enables or disables an alarm.
func (s *Server) Toggle(ctx context.Context, req *ToggleRequest) (*AlarmResponse, error) {
	if req == nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	return s.result(ctx, func() (lifecycle.Result, error) {
		return s.service.Toggle(ctx, req.ID, req.Enabled)
	})
}

// Delete removes an alarm; it can be restored with Undo.
func (s *Server) Delete(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.Delete)
}

// Undo restores the most recently deleted copy of an alarm.
func (s *Server) Undo(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.Undo)
}

// Snooze pauses the ringing alarm.
func (s *Server) Snooze(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.Snooze)
}

// Dismiss ends the ring episode.
func (s *Server) Dismiss(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.Dismiss)
}

// CompleteMission records the completion of the current mission.
func (s *Server) CompleteMission(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.MissionCompleted)
}

// MissionTimeout reports that the current mission ran out of time.
func (s *Server) MissionTimeout(ctx context.Context, req *IDRequest) (*AlarmResponse, error) {
	return s.byID(ctx, req, s.service.MissionTimedOut)
}

// Trigger hands a trigger to the dispatcher as if the scheduler fired it.
func (s *Server) Trigger(ctx context.Context, req *TriggerRequest) (*Empty, error) {
	if s.sink == nil {
		return nil, status.Error(codes.Unimplemented, "trigger injection is disabled")
	}

	if req == nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	kind, err := domain.ParseTriggerKind(req.Kind)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	logger.InfoKV(ctx, "Trigger injected", "alarm_id", req.ID, "kind", kind)
	s.sink.Submit(domain.Trigger{AlarmID: req.ID, Kind: kind})

	return new(Empty), nil
}

func (s *Server) byID(
	ctx context.Context,
	req *IDRequest,
	call func(ctx context.Context, id string) (lifecycle.Result, error),
) (*AlarmResponse, error) {
	if err := requireID(req); err != nil {
		return nil, err
	}

	return s.result(ctx, func() (lifecycle.Result, error) {
		return call(ctx, req.ID)
	})
}

func (s *Server) result(ctx context.Context, call func() (lifecycle.Result, error)) (*AlarmResponse, error) {
	result, err := call()
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return toAlarmResponse(result), nil
}

func requireID(req *IDRequest) error {
	if req == nil || req.ID == "" {
		return status.Error(codes.InvalidArgument, "id is required")
	}

	return nil
}

// toStatus maps lifecycle errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAlarm):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrSchedulingDenied):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.ErrorKV(ctx, "Unexpected lifecycle error", "error", err)

		return status.Error(codes.Internal, "internal error")
	}
}
