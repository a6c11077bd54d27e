package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Scheduler arms wake-up triggers.
type Scheduler interface {
	// Schedule arms the trigger of kind for alarmID, replacing the previous one in its slot.
	Schedule(ctx context.Context, alarmID string, kind domain.TriggerKind, at time.Time) error
	// Cancel disarms the trigger of kind if it is armed.
	Cancel(ctx context.Context, alarmID string, kind domain.TriggerKind) error
	// CancelAll disarms every trigger of alarmID.
	CancelAll(ctx context.Context, alarmID string) error
	// Armed lists the triggers currently armed for alarmID.
	Armed(alarmID string) []domain.Trigger
}

// Sink receives fired triggers.
type Sink interface {
	Submit(trigger domain.Trigger)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(trigger domain.Trigger)

// Submit calls f.
func (f SinkFunc) Submit(trigger domain.Trigger) { f(trigger) }

type slot int

const (
	slotPrimary slot = iota
	slotTimeout
)

func slotOf(kind domain.TriggerKind) slot {
	if kind == domain.TriggerTimeout {
		return slotTimeout
	}

	return slotPrimary
}

// armedJob is a trigger backed by a gocron one-time job.
type armedJob struct {
	trigger domain.Trigger
	jobID   uuid.UUID
	seq     uint64
}

// GocronScheduler runs triggers as gocron one-time jobs.
type GocronScheduler struct {
	// cron executes the jobs.
	cron gocron.Scheduler
	// clock is shared with cron.
	clock clockwork.Clock
	// exact reports whether exact scheduling is currently allowed.
	exact atomic.Bool
	// sink receives fired triggers.
	sink atomic.Pointer[Sink]

	// mu protects armed and seq.
	mu    sync.Mutex
	armed map[string]map[slot]*armedJob
	seq   uint64
}

// Option configures a GocronScheduler.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	location *time.Location
}

// WithClock overrides the wall clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocation sets the time zone jobs are evaluated in.
func WithLocation(location *time.Location) Option {
	return func(o *options) {
		o.location = location
	}
}

// New creates a stopped scheduler with exact scheduling allowed.
func New(opts ...Option) (*GocronScheduler, error) {
	o := &options{
		clock:    clockwork.NewRealClock(),
		location: time.Local,
	}

	for _, opt := range opts {
		opt(o)
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLocation(o.location),
	)
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	s := &GocronScheduler{
		cron:  cron,
		clock: o.clock,
		armed: make(map[string]map[slot]*armedJob),
	}

	s.exact.Store(true)

	return s, nil
}

// SetSink injects the receiver of fired triggers.
func (s *GocronScheduler) SetSink(sink Sink) {
	s.sink.Store(&sink)
}

// SetExactScheduling records whether the exact scheduling capability is granted.
func (s *GocronScheduler) SetExactScheduling(allowed bool) {
	s.exact.Store(allowed)
}

// ExactSchedulingAllowed reports the exact scheduling capability.
func (s *GocronScheduler) ExactSchedulingAllowed() bool {
	return s.exact.Load()
}

// Start begins executing jobs.
func (s *GocronScheduler) Start() {
	s.cron.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *GocronScheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown gocron scheduler: %w", err)
	}

	return nil
}

// Schedule arms a trigger. Instants that are not in the future fire immediately.
func (s *GocronScheduler) Schedule(ctx context.Context, alarmID string, kind domain.TriggerKind, at time.Time) error {
	if !s.exact.Load() {
		return fmt.Errorf("schedule %s for alarm %s: %w", kind, alarmID, domain.ErrSchedulingDenied)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := slotOf(kind)

	// A failed removal leaves a stale job behind; its seq no longer matches.
	_ = s.removeLocked(ctx, alarmID, target)

	s.seq++
	seq := s.seq

	start := gocron.OneTimeJobStartImmediately()
	if at.After(s.clock.Now()) {
		start = gocron.OneTimeJobStartDateTime(at)
	}

	job, err := s.cron.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(s.fire, alarmID, target, seq),
		gocron.WithName(fmt.Sprintf("%s-%s", alarmID, kind)),
		gocron.WithTags(alarmID),
	)
	if err != nil {
		return fmt.Errorf("schedule %s for alarm %s: %w", kind, alarmID, err)
	}

	slots := s.armed[alarmID]
	if slots == nil {
		slots = make(map[slot]*armedJob, 2)
		s.armed[alarmID] = slots
	}

	slots[target] = &armedJob{
		trigger: domain.Trigger{AlarmID: alarmID, Kind: kind, At: at},
		jobID:   job.ID(),
		seq:     seq,
	}

	logger.DebugKV(ctx, "Trigger armed", "alarm_id", alarmID, "kind", kind, "at", at)

	return nil
}

// Cancel disarms the trigger of kind. MAIN and SNOOZE only match the trigger of the same kind.
func (s *GocronScheduler) Cancel(ctx context.Context, alarmID string, kind domain.TriggerKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := slotOf(kind)

	entry := s.armed[alarmID][target]
	if entry == nil || entry.trigger.Kind != kind {
		return nil
	}

	return s.removeLocked(ctx, alarmID, target)
}

// CancelAll disarms every trigger of the alarm. The armed set is emptied even when
// the underlying job removal fails; a job that still fires is recognized as stale.
func (s *GocronScheduler) CancelAll(ctx context.Context, alarmID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	for target := range s.armed[alarmID] {
		if err := s.removeLocked(ctx, alarmID, target); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Armed lists the armed triggers of the alarm ordered by instant.
func (s *GocronScheduler) Armed(alarmID string) []domain.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	triggers := make([]domain.Trigger, 0, len(s.armed[alarmID]))
	for _, entry := range s.armed[alarmID] {
		triggers = append(triggers, entry.trigger)
	}

	slices.SortFunc(triggers, func(a, b domain.Trigger) int {
		return a.At.Compare(b.At)
	})

	return triggers
}

func (s *GocronScheduler) removeLocked(ctx context.Context, alarmID string, target slot) error {
	entry := s.armed[alarmID][target]
	if entry == nil {
		return nil
	}

	delete(s.armed[alarmID], target)

	if len(s.armed[alarmID]) == 0 {
		delete(s.armed, alarmID)
	}

	err := s.cron.RemoveJob(entry.jobID)
	if err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		logger.WarnKV(ctx, "Failed to remove trigger job", "alarm_id", alarmID, "kind", entry.trigger.Kind, "error", err)

		return fmt.Errorf("remove %s job for alarm %s: %w", entry.trigger.Kind, alarmID, err)
	}

	return nil
}

// fire runs on the gocron executor.
func (s *GocronScheduler) fire(alarmID string, target slot, seq uint64) {
	s.mu.Lock()

	entry := s.armed[alarmID][target]
	if entry == nil || entry.seq != seq {
		s.mu.Unlock()

		return
	}

	delete(s.armed[alarmID], target)

	if len(s.armed[alarmID]) == 0 {
		delete(s.armed, alarmID)
	}

	s.mu.Unlock()

	// The finished one-time job is no longer needed.
	go func() {
		_ = s.cron.RemoveJob(entry.jobID)
	}()

	sink := s.sink.Load()
	if sink == nil {
		logger.ErrorKV(context.Background(), "Trigger fired without a sink", "alarm_id", alarmID, "kind", entry.trigger.Kind)

		return
	}

	(*sink).Submit(entry.trigger)
}
