package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/mission"
	"github.com/oshokin/alarm-clock/internal/notification"
	repository "github.com/oshokin/alarm-clock/internal/repository/alarm"
	"github.com/oshokin/alarm-clock/internal/retry"
	"github.com/oshokin/alarm-clock/internal/ringing"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

// Ringer is the ringing resource.
type Ringer interface {
	Acquire(ctx context.Context, lease ringing.Lease)
	Release(ctx context.Context, alarmID string) bool
	Holder() (string, bool)
}

// Presenter shows lifecycle notifications.
type Presenter interface {
	Show(ctx context.Context, session *notification.Session, v notification.Variant) error
	Dismiss(ctx context.Context, alarmID string) error
}

// Result is the outcome of a use case.
type Result struct {
	// Alarm is the alarm after the use case, nil when it no longer exists.
	Alarm *domain.Alarm
	// Rejection is set when the transition was refused and nothing changed.
	Rejection *domain.Rejection
	// Signal is the mission flow instruction for the presentation surface.
	Signal *mission.Signal
}

// Rejected reports whether the transition was refused.
func (r Result) Rejected() bool {
	return r.Rejection != nil
}

const (
	// DefaultRingTimeout is how long an alarm rings before it counts as missed.
	DefaultRingTimeout = 10 * time.Minute
	// DefaultUpcomingWindow is how early an upcoming notification is shown.
	DefaultUpcomingWindow = 30 * time.Minute
	// DefaultUndoLimit is how many deletions can be undone.
	DefaultUndoLimit = 20
)

// Dependencies are the collaborators of the Coordinator.
type Dependencies struct {
	Repository repository.Repository
	Scheduler  scheduler.Scheduler
	Ringer     Ringer
	Presenter  Presenter
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the wall clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

// WithSession sets the notification session.
func WithSession(session *notification.Session) Option {
	return func(c *Coordinator) {
		c.session = session
	}
}

// WithRetryPolicy sets the retry policy for scheduler calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Coordinator) {
		c.retry = policy
	}
}

// WithRingTimeout sets the ring timeout.
func WithRingTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.SetRingTimeout(d)
	}
}

// WithUpcomingWindow sets how early upcoming notifications are shown.
func WithUpcomingWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.upcomingWindow = d
		}
	}
}

// WithSnoozeDefaults sets the snooze settings given to new alarms saved without any.
func WithSnoozeDefaults(intervalMinutes, maxCount int) Option {
	return func(c *Coordinator) {
		c.snoozeDefaults = domain.Snooze{IntervalMinutes: intervalMinutes, MaxCount: maxCount}
	}
}

// WithUndoLimit sets the size of the undo buffer.
func WithUndoLimit(n int) Option {
	return func(c *Coordinator) {
		c.undo = newUndoBuffer(n)
	}
}

// Coordinator orchestrates the alarm lifecycle.
type Coordinator struct {
	repo      repository.Repository
	scheduler scheduler.Scheduler
	ringer    Ringer
	presenter Presenter

	clock          clockwork.Clock
	recorder       metrics.Recorder
	session        *notification.Session
	retry          retry.Policy
	ringTimeout    atomic.Int64
	upcomingWindow time.Duration
	snoozeDefaults domain.Snooze

	locks *keyedMutex
	undo  *undoBuffer
}

// NewCoordinator wires the collaborators.
func NewCoordinator(deps Dependencies, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:           deps.Repository,
		scheduler:      deps.Scheduler,
		ringer:         deps.Ringer,
		presenter:      deps.Presenter,
		clock:          clockwork.NewRealClock(),
		recorder:       metrics.Nop{},
		session:        notification.NewSession(),
		retry:          retry.DefaultPolicy(),
		upcomingWindow: DefaultUpcomingWindow,
		locks:          newKeyedMutex(),
		undo:           newUndoBuffer(DefaultUndoLimit),
	}

	c.ringTimeout.Store(int64(DefaultRingTimeout))

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetRingTimeout changes the ring timeout of episodes started from now on.
func (c *Coordinator) SetRingTimeout(d time.Duration) {
	if d > 0 {
		c.ringTimeout.Store(int64(d))
	}
}

// RingTimeout returns the current ring timeout.
func (c *Coordinator) RingTimeout() time.Duration {
	return time.Duration(c.ringTimeout.Load())
}

// run executes a use case under the alarm lock.
func (c *Coordinator) run(
	ctx context.Context,
	id string,
	useCase string,
	fn func(ctx context.Context) (Result, error),
) (Result, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	started := c.clock.Now()
	ctx = logger.WithFields(ctx, map[string]any{"alarm_id": id, "use_case": useCase})

	result, err := fn(ctx)

	c.recorder.ObserveTransition(useCase, c.clock.Since(started))

	if result.Rejection != nil {
		c.recorder.IncRejection(string(result.Rejection.Reason))
		logger.InfoKV(ctx, "Transition rejected", "reason", result.Rejection.Reason)
	}

	return result, err
}

// load reads the alarm, classifying failures.
func (c *Coordinator) load(ctx context.Context, id string) (*domain.Alarm, error) {
	a, err := c.repo.Get(ctx, id)

	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load alarm %s: %w", id, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("load alarm %s: %w: %w", id, domain.ErrPersistence, err)
	}
}

// plan is a computed transition waiting to be committed.
type plan struct {
	// from is the state before the transition.
	from domain.State
	// alarm is the new aggregate.
	alarm *domain.Alarm
	// triggers replace the armed set when rearm is true.
	triggers []domain.Trigger
	rearm    bool
}

// commit swaps the armed triggers and persists the aggregate. On failure the
// previously armed triggers are restored and the stored aggregate is untouched.
func (c *Coordinator) commit(ctx context.Context, p plan) error {
	a := p.alarm
	a.UpdatedAt = c.clock.Now()

	var previous []domain.Trigger

	if p.rearm {
		a.NextTriggerAt = time.Time{}

		for _, t := range p.triggers {
			if t.Kind != domain.TriggerTimeout {
				a.NextTriggerAt = t.At
			}
		}

		previous = c.scheduler.Armed(a.ID)

		if err := c.replaceTriggers(ctx, a.ID, p.triggers); err != nil {
			c.restoreTriggers(ctx, a.ID, previous)

			return err
		}
	}

	if err := c.repo.Save(ctx, a); err != nil {
		if p.rearm {
			c.restoreTriggers(ctx, a.ID, previous)
		}

		return fmt.Errorf("save alarm %s: %w: %w", a.ID, domain.ErrPersistence, err)
	}

	if p.from != a.State {
		c.recorder.IncTransition(string(p.from), string(a.State))
	}

	logger.InfoKV(ctx, "Alarm transition",
		"from", p.from,
		"to", a.State,
		"enabled", a.Enabled,
		"snooze_count", a.Snooze.Count,
		"next_trigger_at", a.NextTriggerAt)

	return nil
}

// replaceTriggers cancels every armed trigger and arms the new set.
func (c *Coordinator) replaceTriggers(ctx context.Context, id string, triggers []domain.Trigger) error {
	if err := c.cancelAll(ctx, id); err != nil {
		return err
	}

	for _, t := range triggers {
		err := c.retry.Do(ctx, func(ctx context.Context) error {
			err := c.scheduler.Schedule(ctx, id, t.Kind, t.At)
			if errors.Is(err, domain.ErrSchedulingDenied) {
				return retry.Permanent(err)
			}

			return err
		})
		if err != nil {
			if !errors.Is(err, domain.ErrSchedulingDenied) {
				err = fmt.Errorf("%w: %w", domain.ErrSchedulingDenied, err)
			}

			return fmt.Errorf("arm %s trigger for alarm %s: %w", t.Kind, id, err)
		}
	}

	return nil
}

// cancelAll disarms every trigger of the alarm, retrying until it completes.
func (c *Coordinator) cancelAll(ctx context.Context, id string) error {
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.scheduler.CancelAll(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("cancel triggers of alarm %s: %w", id, err)
	}

	return nil
}

// restoreTriggers re-arms a previous trigger set after a failed commit.
func (c *Coordinator) restoreTriggers(ctx context.Context, id string, previous []domain.Trigger) {
	if err := c.cancelAll(ctx, id); err != nil {
		logger.ErrorKV(ctx, "Failed to clear triggers during rollback", "error", err)
	}

	for _, t := range previous {
		if err := c.scheduler.Schedule(ctx, id, t.Kind, t.At); err != nil {
			logger.ErrorKV(ctx, "Failed to restore trigger", "kind", t.Kind, "at", t.At, "error", err)
		}
	}
}

// rearmAfterFailedRing arms the next trigger of an alarm whose ring entry failed.
// The scheduler consumed the fired trigger, so the rollback in commit has nothing
// to restore for it. MAIN falls back to the next occurrence, SNOOZE to another
// snooze interval. The stored alarm is updated on a best effort basis.
func (c *Coordinator) rearmAfterFailedRing(ctx context.Context, a *domain.Alarm, kind domain.TriggerKind) {
	now := c.clock.Now()

	var fallback domain.Trigger

	switch kind {
	case domain.TriggerSnooze:
		fallback = domain.Trigger{AlarmID: a.ID, Kind: domain.TriggerSnooze, At: now.Add(a.Snooze.Interval())}
	default:
		triggers, err := nextMain(a, now)
		if err != nil || len(triggers) == 0 {
			logger.ErrorKV(ctx, "No fallback trigger after failed ring", "error", err)

			return
		}

		fallback = triggers[0]
	}

	if err := c.scheduler.Schedule(ctx, a.ID, fallback.Kind, fallback.At); err != nil {
		logger.ErrorKV(ctx, "Failed to arm fallback trigger after failed ring",
			"kind", fallback.Kind,
			"at", fallback.At,
			"error", err)

		return
	}

	logger.WarnKV(ctx, "Ring failed, fallback trigger armed", "kind", fallback.Kind, "at", fallback.At)

	a.NextTriggerAt = fallback.At
	a.UpdatedAt = now

	if err := c.repo.Save(ctx, a); err != nil {
		logger.WarnKV(ctx, "Failed to store fallback trigger instant", "error", err)
	}
}

// nextMain returns the MAIN trigger of an enabled alarm after ref.
func nextMain(a *domain.Alarm, ref time.Time) ([]domain.Trigger, error) {
	if !a.Enabled {
		return nil, nil
	}

	at, err := a.NextTrigger(ref)
	if err != nil {
		return nil, err
	}

	return []domain.Trigger{{AlarmID: a.ID, Kind: domain.TriggerMain, At: at}}, nil
}

// conclude ends the ring episode. Repeating alarms go back to SCHEDULED with the next
// MAIN trigger; one-time alarms are disabled and keep the terminal state.
func conclude(a *domain.Alarm, terminal domain.State, now time.Time) ([]domain.Trigger, error) {
	a.EndEpisode()

	if !a.IsRepeating() {
		a.Enabled = false
		a.State = terminal

		return nil, nil
	}

	a.State = domain.StateScheduled

	return nextMain(a, now)
}

// release frees the ringing resource when the alarm holds it.
func (c *Coordinator) release(ctx context.Context, id string) {
	c.ringer.Release(ctx, id)
}

func (c *Coordinator) show(ctx context.Context, v notification.Variant) {
	if err := c.presenter.Show(ctx, c.session, v); err != nil {
		logger.WarnKV(ctx, "Failed to show notification", "kind", v.Kind(), "error", err)
	}
}

func (c *Coordinator) dismissNotification(ctx context.Context, id string) {
	if err := c.presenter.Dismiss(ctx, id); err != nil {
		logger.WarnKV(ctx, "Failed to dismiss notification", "error", err)
	}
}

// announce shows the upcoming notification when the next MAIN trigger is close.
func (c *Coordinator) announce(ctx context.Context, a *domain.Alarm) {
	if !a.Enabled || a.State != domain.StateScheduled || a.NextTriggerAt.IsZero() {
		return
	}

	if a.NextTriggerAt.Sub(c.clock.Now()) > c.upcomingWindow {
		return
	}

	c.show(ctx, notification.Upcoming{Alarm: a, At: a.NextTriggerAt})
}

func (c *Coordinator) lease(a *domain.Alarm) ringing.Lease {
	return ringing.Lease{
		AlarmID: a.ID,
		Sound:   a.Sound,
		Volume:  a.Volume,
		Vibrate: a.Vibrate,
	}
}
