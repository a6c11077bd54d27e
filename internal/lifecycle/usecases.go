package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/mission"
	"github.com/oshokin/alarm-clock/internal/notification"
)

// Save creates or updates an alarm from the editor. An empty id creates a new alarm.
// A live ring episode keeps its state, mission snapshot and armed triggers.
func (c *Coordinator) Save(ctx context.Context, input *domain.Alarm) (Result, error) {
	if input == nil {
		return Result{}, fmt.Errorf("save alarm: %w", domain.ErrInvalidAlarm)
	}

	a := input.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	for i := range a.Missions {
		if a.Missions[i].ID == "" {
			a.Missions[i].ID = uuid.NewString()
		}
	}

	a.Days = domain.NewWeekdays(a.Days...)

	return c.run(ctx, a.ID, "save", func(ctx context.Context) (Result, error) {
		existing, err := c.load(ctx, a.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return Result{}, err
		}

		from := domain.StateScheduled
		if existing != nil {
			from = existing.State
		} else if a.Snooze == (domain.Snooze{}) {
			a.Snooze = c.snoozeDefaults
		}

		if existing != nil && existing.State.InEpisode() && a.Enabled {
			a.State = existing.State
			a.Episode = existing.Episode
			a.NextTriggerAt = existing.NextTriggerAt
			a.Snooze.Count = min(existing.Snooze.Count, a.Snooze.MaxCount)

			if err := a.Validate(); err != nil {
				return Result{}, err
			}

			if err := c.commit(ctx, plan{from: from, alarm: a}); err != nil {
				return Result{}, err
			}

			return Result{Alarm: a.Clone()}, nil
		}

		a.State = domain.StateScheduled
		a.Episode = nil
		a.Snooze.Count = 0

		if err := a.Validate(); err != nil {
			return Result{}, err
		}

		triggers, err := nextMain(a, c.clock.Now())
		if err != nil {
			return Result{}, err
		}

		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		if existing != nil && existing.State.InEpisode() {
			c.release(ctx, a.ID)
			c.dismissNotification(ctx, a.ID)
		}

		c.session.Forget(a.ID)
		c.announce(ctx, a)

		return Result{Alarm: a.Clone()}, nil
	})
}

// Get returns the stored alarm.
func (c *Coordinator) Get(ctx context.Context, id string) (*domain.Alarm, error) {
	return c.load(ctx, id)
}

// List returns every stored alarm.
func (c *Coordinator) List(ctx context.Context) ([]*domain.Alarm, error) {
	alarms, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w: %w", domain.ErrPersistence, err)
	}

	return alarms, nil
}

// Ring starts a ring episode when a MAIN or SNOOZE trigger fires. MAIN is accepted
// outside an episode, SNOOZE only while snoozed; anything else is a stale delivery.
func (c *Coordinator) Ring(ctx context.Context, id string, kind domain.TriggerKind) (Result, error) {
	return c.run(ctx, id, "ring", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		accepted := a.Enabled && ((kind == domain.TriggerMain && !a.State.InEpisode()) ||
			(kind == domain.TriggerSnooze && a.State == domain.StateSnoozed))
		if !accepted {
			logger.InfoKV(ctx, "Ignoring stale trigger", "kind", kind, "state", a.State, "enabled", a.Enabled)

			return Result{Alarm: a}, nil
		}

		from := a.State
		now := c.clock.Now()
		prior := a.Clone()

		if kind == domain.TriggerMain {
			a.Snooze.Count = 0
		}

		a.State = domain.StateRinging
		a.Episode = domain.NewEpisode(a.Missions, now, c.RingTimeout())

		timeout := []domain.Trigger{{AlarmID: a.ID, Kind: domain.TriggerTimeout, At: a.Episode.TimeoutAt}}
		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: timeout, rearm: true}); err != nil {
			c.rearmAfterFailedRing(ctx, prior, kind)

			return Result{}, err
		}

		c.ringer.Acquire(ctx, c.lease(a))
		c.show(ctx, notification.Ringing{Alarm: a})

		flow := mission.FromEpisode(a.Episode)
		signal := flow.Start()

		return Result{Alarm: a.Clone(), Signal: &signal}, nil
	})
}

// Snooze pauses a ringing alarm until now plus the snooze interval.
func (c *Coordinator) Snooze(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "snooze", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if a.State != domain.StateRinging {
			return Result{Alarm: a, Rejection: notRinging(a)}, nil
		}

		if a.Episode == nil {
			return c.missLostEpisode(ctx, a)
		}

		if !a.CanSnooze() {
			return Result{
				Alarm:     a,
				Rejection: domain.Reject(domain.RejectSnoozeLimit, fmt.Sprintf("snooze limit of %d reached", a.Snooze.MaxCount)),
			}, nil
		}

		from := a.State
		next := c.clock.Now().Add(a.Snooze.Interval())

		a.Snooze.Count++
		a.State = domain.StateSnoozed
		a.Episode.TimeoutAt = next.Add(c.RingTimeout())

		triggers := []domain.Trigger{
			{AlarmID: a.ID, Kind: domain.TriggerSnooze, At: next},
			{AlarmID: a.ID, Kind: domain.TriggerTimeout, At: a.Episode.TimeoutAt},
		}

		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		c.release(ctx, a.ID)
		c.show(ctx, notification.Snoozed{Alarm: a, Until: next})

		return Result{Alarm: a.Clone()}, nil
	})
}

// Dismiss ends the ring episode once every mission of the snapshot is complete.
func (c *Coordinator) Dismiss(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "dismiss", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if !a.State.InEpisode() {
			return Result{Alarm: a, Rejection: notRinging(a)}, nil
		}

		if !a.MissionsComplete() {
			remaining := len(a.Episode.Missions) - a.Episode.Completed

			return Result{
				Alarm:     a,
				Rejection: domain.Reject(domain.RejectMissionsIncomplete, fmt.Sprintf("%d mission(s) left", remaining)),
			}, nil
		}

		from := a.State

		triggers, err := conclude(a, domain.StateDismissed, c.clock.Now())
		if err != nil {
			return Result{}, err
		}

		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		c.release(ctx, a.ID)
		c.dismissNotification(ctx, a.ID)
		c.announce(ctx, a)

		return Result{Alarm: a.Clone()}, nil
	})
}

// Stop is Dismiss as offered by the ringing notification.
func (c *Coordinator) Stop(ctx context.Context, id string) (Result, error) {
	return c.Dismiss(ctx, id)
}

// Missed ends an unanswered ring episode. It is a no-op outside an episode,
// so a repeated TIMEOUT leaves the alarm as the first one did.
func (c *Coordinator) Missed(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "missed", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if !a.State.InEpisode() {
			logger.DebugKV(ctx, "Ignoring timeout outside a ring episode", "state", a.State)

			return Result{Alarm: a}, nil
		}

		return c.miss(ctx, a)
	})
}

// miss runs the Missed transition on a loaded alarm.
func (c *Coordinator) miss(ctx context.Context, a *domain.Alarm) (Result, error) {
	from := a.State
	now := c.clock.Now()

	triggers, err := conclude(a, domain.StateMissed, now)
	if err != nil {
		return Result{}, err
	}

	if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
		return Result{}, err
	}

	c.release(ctx, a.ID)
	c.show(ctx, notification.Missed{Alarm: a, At: now})

	return Result{Alarm: a.Clone()}, nil
}

// missLostEpisode ends a ringing alarm stored without its episode, which cannot be
// resumed, and rejects the action that found it.
func (c *Coordinator) missLostEpisode(ctx context.Context, a *domain.Alarm) (Result, error) {
	logger.WarnKV(ctx, "Ringing alarm has no episode, treating it as missed")

	result, err := c.miss(ctx, a)
	if err != nil {
		return Result{}, err
	}

	result.Rejection = notRinging(result.Alarm)

	return result, nil
}

// Toggle enables or disables an alarm. Disabling cancels every trigger and ends a live
// episode; enabling arms the next MAIN trigger.
func (c *Coordinator) Toggle(ctx context.Context, id string, enabled bool) (Result, error) {
	return c.run(ctx, id, "toggle", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if enabled && a.Enabled && a.State.InEpisode() {
			return Result{Alarm: a}, nil
		}

		from := a.State
		wasRinging := a.State.InEpisode()

		a.Enabled = enabled
		a.State = domain.StateScheduled
		a.EndEpisode()

		triggers, err := nextMain(a, c.clock.Now())
		if err != nil {
			return Result{}, err
		}

		if err := c.commit(ctx, plan{from: from, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		if wasRinging || !enabled {
			c.release(ctx, a.ID)
			c.dismissNotification(ctx, a.ID)
		}

		c.session.Forget(a.ID)
		c.announce(ctx, a)

		return Result{Alarm: a.Clone()}, nil
	})
}

// Delete removes the alarm in any state and keeps it for Undo. Deleting an unknown
// alarm is a no-op.
func (c *Coordinator) Delete(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "delete", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return Result{}, nil
		}

		if err != nil {
			return Result{}, err
		}

		if err := c.repo.Delete(ctx, id); err != nil {
			return Result{}, fmt.Errorf("delete alarm %s: %w: %w", id, domain.ErrPersistence, err)
		}

		// Triggers still armed after a failed cancel find nothing to load.
		if err := c.cancelAll(ctx, id); err != nil {
			logger.ErrorKV(ctx, "Failed to cancel triggers of deleted alarm", "error", err)
		}

		c.release(ctx, id)
		c.dismissNotification(ctx, id)
		c.session.Forget(id)
		c.undo.push(a)

		logger.InfoKV(ctx, "Alarm deleted", "state", a.State)

		return Result{}, nil
	})
}

// Undo reinstates the most recently deleted alarm with the id.
func (c *Coordinator) Undo(ctx context.Context, id string) (Result, error) {
	a, ok := c.undo.pop(id)
	if !ok {
		return Result{}, fmt.Errorf("undo alarm %s: nothing to restore: %w", id, domain.ErrNotFound)
	}

	result, err := c.run(ctx, id, "undo", func(ctx context.Context) (Result, error) {
		_, err := c.load(ctx, id)

		switch {
		case err == nil:
			return Result{}, fmt.Errorf("undo alarm %s: saved again after deletion: %w", id, domain.ErrAlreadyExists)
		case !errors.Is(err, domain.ErrNotFound):
			return Result{}, err
		}

		a.EndEpisode()
		a.State = domain.StateScheduled

		triggers, err := nextMain(a, c.clock.Now())
		if err != nil {
			return Result{}, err
		}

		if err := c.commit(ctx, plan{from: a.State, alarm: a, triggers: triggers, rearm: true}); err != nil {
			return Result{}, err
		}

		c.announce(ctx, a)

		return Result{Alarm: a.Clone()}, nil
	})
	if err != nil {
		c.undo.push(a)
	}

	return result, err
}

// MissionCompleted advances the mission flow of the ringing alarm.
func (c *Coordinator) MissionCompleted(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "mission_completed", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if a.State != domain.StateRinging {
			return Result{Alarm: a, Rejection: notRinging(a)}, nil
		}

		if a.Episode == nil {
			return c.missLostEpisode(ctx, a)
		}

		flow := mission.FromEpisode(a.Episode)
		signal := flow.Completed()

		if flow.Index != a.Episode.Completed {
			a.Episode.Completed = flow.Index

			if err := c.commit(ctx, plan{from: a.State, alarm: a}); err != nil {
				return Result{}, err
			}

			if signal.Kind == mission.AllComplete {
				c.show(ctx, notification.Ringing{Alarm: a})
			}
		}

		return Result{Alarm: a.Clone(), Signal: &signal}, nil
	})
}

// MissionTimedOut sends the surface back to the overview. The alarm keeps ringing.
func (c *Coordinator) MissionTimedOut(ctx context.Context, id string) (Result, error) {
	return c.run(ctx, id, "mission_timed_out", func(ctx context.Context) (Result, error) {
		a, err := c.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		if a.State != domain.StateRinging {
			return Result{Alarm: a, Rejection: notRinging(a)}, nil
		}

		if a.Episode == nil {
			return c.missLostEpisode(ctx, a)
		}

		flow := mission.FromEpisode(a.Episode)
		signal := flow.TimedOut()

		return Result{Alarm: a, Signal: &signal}, nil
	})
}

// HandleTrigger routes a fired trigger. Triggers for deleted alarms are dropped.
func (c *Coordinator) HandleTrigger(ctx context.Context, t domain.Trigger) error {
	c.recorder.IncTrigger(string(t.Kind))

	var err error

	switch t.Kind {
	case domain.TriggerMain, domain.TriggerSnooze:
		_, err = c.Ring(ctx, t.AlarmID, t.Kind)
	case domain.TriggerTimeout:
		_, err = c.Missed(ctx, t.AlarmID)
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}

	if errors.Is(err, domain.ErrNotFound) {
		logger.DebugKV(ctx, "Dropping trigger of a deleted alarm", "alarm_id", t.AlarmID, "kind", t.Kind)

		return nil
	}

	return err
}

func notRinging(a *domain.Alarm) *domain.Rejection {
	return domain.Reject(domain.RejectNotRinging, fmt.Sprintf("alarm is %s", a.State))
}
