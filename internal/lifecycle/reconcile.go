package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/notification"
)

// Reconcile restores the armed trigger set after a restart. Episodes whose timeout
// passed while the daemon was down are missed, live episodes are re-armed, and
// scheduled alarms whose trigger instant passed are reported as missed and rescheduled.
// Every alarm is attempted; the failures are joined.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	alarms, err := c.List(ctx)
	if err != nil {
		return err
	}

	var errs []error

	for _, stored := range alarms {
		_, err := c.run(ctx, stored.ID, "reconcile", func(ctx context.Context) (Result, error) {
			a, err := c.load(ctx, stored.ID)
			if err != nil {
				return Result{}, err
			}

			return c.reconcile(ctx, a)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.ErrorKV(ctx, "Failed to reconcile alarm", "alarm_id", stored.ID, "error", err)
			errs = append(errs, err)
		}
	}

	logger.InfoKV(ctx, "Alarms reconciled", "count", len(alarms), "failed", len(errs))

	return errors.Join(errs...)
}

func (c *Coordinator) reconcile(ctx context.Context, a *domain.Alarm) (Result, error) {
	now := c.clock.Now()

	switch {
	case !a.Enabled:
		if err := c.cancelAll(ctx, a.ID); err != nil {
			return Result{}, err
		}

		return Result{Alarm: a}, nil
	case a.State.InEpisode() && a.Episode == nil:
		// An episode without its snapshot cannot be resumed.
		return c.miss(ctx, a)
	case a.State.InEpisode() && !a.Episode.TimeoutAt.After(now):
		return c.miss(ctx, a)
	case a.State == domain.StateRinging:
		timeout := []domain.Trigger{{AlarmID: a.ID, Kind: domain.TriggerTimeout, At: a.Episode.TimeoutAt}}
		if err := c.commit(ctx, plan{from: a.State, alarm: a, triggers: timeout, rearm: true}); err != nil {
			return Result{}, err
		}

		// A running daemon re-reconciles without restarting the sound of the holder.
		if holder, held := c.ringer.Holder(); !held || holder != a.ID {
			c.ringer.Acquire(ctx, c.lease(a))
			c.show(ctx, notification.Ringing{Alarm: a})
		}

		return Result{Alarm: a.Clone()}, nil
	case a.State == domain.StateSnoozed:
		// A SNOOZE instant in the past fires at once.
		triggers := []domain.Trigger{
			{AlarmID: a.ID, Kind: domain.TriggerSnooze, At: a.NextTriggerAt},
			{AlarmID: a.ID, Kind: domain.TriggerTimeout, At: a.Episode.TimeoutAt},
		}

		if err := c.commit(ctx, plan{from: a.State, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		return Result{Alarm: a.Clone()}, nil
	case !a.NextTriggerAt.IsZero() && a.NextTriggerAt.Before(now):
		return c.missWhileDown(ctx, a, now)
	default:
		from := a.State
		a.State = domain.StateScheduled

		triggers, err := nextMain(a, now)
		if err != nil {
			return Result{}, err
		}

		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		c.announce(ctx, a)

		return Result{Alarm: a.Clone()}, nil
	}
}

// missWhileDown handles a MAIN trigger that should have fired while the daemon was down.
func (c *Coordinator) missWhileDown(ctx context.Context, a *domain.Alarm, now time.Time) (Result, error) {
	from := a.State
	missedAt := a.NextTriggerAt

	triggers, err := conclude(a, domain.StateMissed, now)
	if err != nil {
		return Result{}, err
	}

	if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
		return Result{}, err
	}

	logger.WarnKV(ctx, "Alarm missed while the daemon was down", "missed_at", missedAt)
	c.show(ctx, notification.Missed{Alarm: a, At: missedAt})

	return Result{Alarm: a.Clone()}, nil
}

// AnnounceUpcoming shows the upcoming notification of every alarm that rings within
// the upcoming window. Each trigger instant is announced once per session.
func (c *Coordinator) AnnounceUpcoming(ctx context.Context) error {
	alarms, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("announce upcoming alarms: %w", err)
	}

	for _, a := range alarms {
		c.announce(logger.WithKV(ctx, "alarm_id", a.ID), a)
	}

	return nil
}
