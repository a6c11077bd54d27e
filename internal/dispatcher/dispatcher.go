package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/retry"
)

// Handler applies a fired trigger.
type Handler interface {
	HandleTrigger(ctx context.Context, trigger domain.Trigger) error
}

// DefaultBuffer is the capacity of the inbound channel.
const DefaultBuffer = 256

// Dispatcher serializes trigger delivery per alarm id.
type Dispatcher struct {
	handler  Handler
	policy   retry.Policy
	recorder metrics.Recorder
	inbound  chan domain.Trigger

	// sendMu keeps Submit from racing with closing the inbound channel.
	sendMu  sync.RWMutex
	stopped bool

	// mu protects workers.
	mu      sync.Mutex
	workers map[string]*worker
	active  sync.WaitGroup

	consumerDone chan struct{}
	stopOnce     sync.Once
}

// worker holds the pending triggers of one alarm.
type worker struct {
	pending []domain.Trigger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetryPolicy sets the delivery retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(d *Dispatcher) {
		d.policy = policy
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithBuffer sets the inbound channel capacity.
func WithBuffer(size int) Option {
	return func(d *Dispatcher) {
		d.inbound = make(chan domain.Trigger, max(size, 0))
	}
}

// New creates a dispatcher; call Start before submitting.
func New(handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler:      handler,
		policy:       retry.DefaultPolicy(),
		recorder:     metrics.Nop{},
		inbound:      make(chan domain.Trigger, DefaultBuffer),
		workers:      make(map[string]*worker),
		consumerDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start runs the consumer until Stop. Deliveries use ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = logger.WithName(ctx, "dispatcher")

	go func() {
		defer close(d.consumerDone)

		for trigger := range d.inbound {
			d.route(ctx, trigger)
		}
	}()
}

// Submit queues a trigger. Triggers submitted after Stop are logged and dropped.
func (d *Dispatcher) Submit(trigger domain.Trigger) {
	d.sendMu.RLock()
	defer d.sendMu.RUnlock()

	if d.stopped {
		logger.WarnKV(context.Background(), "Dropping trigger after shutdown", "alarm_id", trigger.AlarmID, "kind", trigger.Kind)

		return
	}

	d.inbound <- trigger
}

// Stop stops accepting triggers and waits until every queued trigger is delivered.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.sendMu.Lock()
		d.stopped = true
		close(d.inbound)
		d.sendMu.Unlock()
	})

	<-d.consumerDone
	d.active.Wait()
}

// route appends the trigger to its alarm's worker, starting one if needed.
func (d *Dispatcher) route(ctx context.Context, trigger domain.Trigger) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w, ok := d.workers[trigger.AlarmID]; ok {
		w.pending = append(w.pending, trigger)

		return
	}

	w := &worker{pending: []domain.Trigger{trigger}}
	d.workers[trigger.AlarmID] = w
	d.active.Add(1)

	go d.work(ctx, trigger.AlarmID, w)
}

// work delivers the alarm's triggers in order and exits when idle.
func (d *Dispatcher) work(ctx context.Context, alarmID string, w *worker) {
	defer d.active.Done()

	for {
		d.mu.Lock()

		if len(w.pending) == 0 {
			delete(d.workers, alarmID)
			d.mu.Unlock()

			return
		}

		trigger := w.pending[0]
		w.pending = w.pending[1:]
		d.mu.Unlock()

		d.deliver(ctx, trigger)
	}
}

// deliver hands one trigger to the handler. It never returns an error or panics.
func (d *Dispatcher) deliver(ctx context.Context, trigger domain.Trigger) {
	ctx = logger.WithFields(ctx, map[string]any{"alarm_id": trigger.AlarmID, "kind": trigger.Kind})
	kind := string(trigger.Kind)

	attempt := 0

	err := d.policy.Do(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			d.recorder.IncRetry(kind)
			logger.WarnKV(ctx, "Retrying trigger delivery", "attempt", attempt+1)
		}

		attempt++

		err := d.safeHandle(ctx, trigger)
		if errors.Is(err, domain.ErrInvalidAlarm) || errors.Is(err, domain.ErrSchedulingDenied) {
			return retry.Permanent(err)
		}

		return err
	})
	if err != nil {
		d.recorder.IncTriggerFailure(kind)
		logger.ErrorKV(ctx, "Trigger delivery failed", "attempts", attempt, "error", err)
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, trigger domain.Trigger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger handler panicked: %v", r)
		}
	}()

	return d.handler.HandleTrigger(ctx, trigger)
}
