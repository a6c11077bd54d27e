package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/dispatcher"
	"github.com/oshokin/alarm-clock/internal/ingest"
	"github.com/oshokin/alarm-clock/internal/lifecycle"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/notification"
	repository "github.com/oshokin/alarm-clock/internal/repository/alarm"
	"github.com/oshokin/alarm-clock/internal/retry"
	"github.com/oshokin/alarm-clock/internal/ringing"
	"github.com/oshokin/alarm-clock/internal/ringing/audio"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

// upcomingInterval is how often upcoming notifications are refreshed.
const upcomingInterval = time.Minute

// daemon holds the assembled alarm clock components.
type daemon struct {
	// clock drives the scheduler, the coordinator and the upcoming ticker.
	clock clockwork.Clock
	// registry collects the Prometheus metrics.
	registry *prom.Registry
	// repo persists the alarms.
	repo repository.Repository
	// scheduler arms the triggers.
	scheduler *scheduler.GocronScheduler
	// ringer owns the ringing resource.
	ringer *ringing.Coordinator
	// coordinator runs the lifecycle use cases.
	coordinator *lifecycle.Coordinator
	// dispatcher serializes fired triggers per alarm.
	dispatcher *dispatcher.Dispatcher
	// closers are released in reverse order on shutdown.
	closers []io.Closer
}

// newDaemon assembles the components described by the settings.
func newDaemon(ctx context.Context, settings *config.Config, clock clockwork.Clock) (_ *daemon, err error) {
	d := &daemon{
		clock:    clock,
		registry: prom.NewRegistry(),
	}

	defer func() {
		if err != nil {
			d.closeResources(ctx)
		}
	}()

	recorder := metrics.NewPrometheusRecorder(d.registry)

	d.repo, err = openRepository(ctx, settings)
	if err != nil {
		return nil, err
	}

	d.closers = append(d.closers, d.repo)

	d.scheduler, err = scheduler.New(scheduler.WithClock(clock))
	if err != nil {
		return nil, err
	}

	d.scheduler.SetExactScheduling(!settings.Ringing.ExactSchedulingDisabled)

	var player ringing.Player = ringing.LogPlayer{}
	if settings.Ringing.Audio {
		player = audio.NewPlayer(settings.Ringing.SoundsDir)
	}

	d.ringer = ringing.NewCoordinator(player,
		ringing.WithVibrator(ringing.LogVibrator{}),
		ringing.WithOnChange(recorder.SetRinging),
	)

	poster, err := openPoster(settings)
	if err != nil {
		return nil, err
	}

	policy := retry.NewPolicy(settings.Retry.Initial.Std(), settings.Retry.Max.Std(), settings.Retry.MaxRetries)

	d.coordinator = lifecycle.NewCoordinator(lifecycle.Dependencies{
		Repository: d.repo,
		Scheduler:  d.scheduler,
		Ringer:     d.ringer,
		Presenter:  notification.NewPresenter(poster, notification.NewLocalizer(settings.Locale), clock),
	},
		lifecycle.WithClock(clock),
		lifecycle.WithRecorder(recorder),
		lifecycle.WithRetryPolicy(policy),
		lifecycle.WithRingTimeout(settings.Ringing.Timeout.Std()),
		lifecycle.WithUpcomingWindow(settings.Ringing.UpcomingWindow.Std()),
		lifecycle.WithUndoLimit(settings.Ringing.UndoLimit),
		lifecycle.WithSnoozeDefaults(settings.Snooze.IntervalMinutes, settings.Snooze.MaxCount),
	)

	d.dispatcher = dispatcher.New(d.coordinator,
		dispatcher.WithRetryPolicy(policy),
		dispatcher.WithRecorder(recorder),
	)

	d.scheduler.SetSink(d.dispatcher)

	if settings.NATS.URL != "" {
		subscriber, err := ingest.NewNATSSubscriber(ctx, settings.NATS.URL, settings.NATS.TriggerSubject, d.dispatcher)
		if err != nil {
			return nil, err
		}

		d.closers = append(d.closers, subscriber)
	}

	if closer, ok := poster.(io.Closer); ok {
		d.closers = append(d.closers, closer)
	}

	return d, nil
}

// openRepository selects the alarm store configured by the driver.
func openRepository(ctx context.Context, settings *config.Config) (repository.Repository, error) {
	switch settings.Store.Driver {
	case config.DriverMemory:
		return repository.NewMemoryRepository(), nil
	case config.DriverSQLite:
		return repository.NewSQLiteRepository(ctx, settings.Store.DSN)
	case config.DriverNATS:
		return repository.NewNATSRepository(settings.NATS.URL, settings.Store.Bucket)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", settings.Store.Driver)
	}
}

// openPoster publishes notifications to NATS when configured, shows them on the desktop
// when enabled and logs them otherwise.
func openPoster(settings *config.Config) (notification.Poster, error) {
	switch {
	case settings.NATS.URL != "":
		return notification.NewNATSPoster(settings.NATS.URL, settings.NATS.NotificationSubject)
	case settings.DesktopNotifications:
		return notification.NewDesktopPoster()
	default:
		return notification.LogPoster{}, nil
	}
}

// start launches trigger delivery and restores the armed triggers.
func (d *daemon) start(ctx context.Context) {
	d.dispatcher.Start(ctx)
	d.scheduler.Start()

	if err := d.coordinator.Reconcile(ctx); err != nil {
		// Alarms that failed to reconcile stay stored; the rest keep working.
		logger.ErrorKV(ctx, "Reconcile finished with errors", "error", err)
	}
}

// announceUpcoming refreshes upcoming notifications until the context is canceled.
func (d *daemon) announceUpcoming(ctx context.Context) {
	ticker := d.clock.NewTicker(upcomingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := d.coordinator.AnnounceUpcoming(ctx); err != nil {
				logger.WarnKV(ctx, "Failed to announce upcoming alarms", "error", err)
			}
		}
	}
}

// applySettings hot-reloads the settings that can change at runtime.
func (d *daemon) applySettings(ctx context.Context, settings *config.Config) {
	if level, ok := logger.ParseLogLevel(settings.Log.Level); ok {
		logger.SetLevel(level)
	}

	d.coordinator.SetRingTimeout(settings.Ringing.Timeout.Std())

	wasAllowed := d.scheduler.ExactSchedulingAllowed()
	d.scheduler.SetExactScheduling(!settings.Ringing.ExactSchedulingDisabled)

	// Alarms denied while the capability was off are armed again.
	if !wasAllowed && d.scheduler.ExactSchedulingAllowed() {
		if err := d.coordinator.Reconcile(ctx); err != nil {
			logger.ErrorKV(ctx, "Re-arming after exact scheduling was restored finished with errors", "error", err)
		}
	}

	logger.InfoKV(ctx, "Runtime settings applied",
		"log_level", logger.Level(),
		"ring_timeout", d.coordinator.RingTimeout(),
		"exact_scheduling", d.scheduler.ExactSchedulingAllowed())
}

// stop halts trigger delivery, silences the ringing resource and releases the resources.
func (d *daemon) stop(ctx context.Context) {
	if err := d.scheduler.Stop(); err != nil {
		logger.WarnKV(ctx, "Failed to stop scheduler", "error", err)
	}

	d.dispatcher.Stop()

	if holder, ok := d.ringer.Holder(); ok {
		d.ringer.Release(ctx, holder)
	}

	d.closeResources(ctx)
}

func (d *daemon) closeResources(ctx context.Context) {
	var errs []error

	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.closers = nil

	if err := errors.Join(errs...); err != nil {
		logger.WarnKV(ctx, "Failed to release resources", "error", err)
	}
}
