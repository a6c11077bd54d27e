package notification

import (
	"cmp"
	"fmt"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// ActionID identifies a notification button.
type ActionID string

const (
	// ActionSnooze snoozes the ringing alarm.
	ActionSnooze ActionID = "snooze"
	// ActionStop dismisses the ringing alarm.
	ActionStop ActionID = "stop"
	// ActionCompleteMission opens the mission flow.
	ActionCompleteMission ActionID = "complete_mission"
	// ActionDismiss removes the notification.
	ActionDismiss ActionID = "dismiss"
)

// MaxActions is the number of buttons a notification can carry.
const MaxActions = 2

// Action is a notification button.
type Action struct {
	ID    ActionID `json:"id"`
	Label string   `json:"label"`
}

// Intent is what opens when the user taps the notification.
type Intent struct {
	// Screen is the surface to open.
	Screen string `json:"screen"`
	// AlarmID is the alarm the surface is bound to.
	AlarmID string `json:"alarm_id"`
}

const (
	screenAlarmList   = "alarm_list"
	screenMissionFlow = "mission_flow"
)

// Content is the renderable data of a notification.
type Content struct {
	Kind          Kind
	AlarmID       string
	Title         string
	Body          string
	Actions       []Action
	ContentIntent Intent
	// FullScreen is set for the ringing variant only.
	FullScreen *Intent
}

const clockFormat = "15:04"

// Map renders the variant. It has no side effects.
func Map(v Variant, l *Localizer) Content {
	a := v.Target()
	label := cmp.Or(a.Label, l.Text(msgDefaultLabel))

	c := Content{
		Kind:          v.Kind(),
		AlarmID:       a.ID,
		ContentIntent: Intent{Screen: screenAlarmList, AlarmID: a.ID},
	}

	switch v := v.(type) {
	case Upcoming:
		c.Title = l.Text(msgUpcomingTitle)
		c.Body = l.Text(msgUpcomingBody, label, formatClock(v.At))
		c.Actions = []Action{dismiss(l)}
	case Ringing:
		c.Title = label
		c.Body = l.Text(msgRingingBody, a.Time.String())
		c.ContentIntent = Intent{Screen: screenMissionFlow, AlarmID: a.ID}
		c.FullScreen = &Intent{Screen: screenMissionFlow, AlarmID: a.ID}

		if a.CanSnooze() {
			c.Actions = append(c.Actions, Action{ID: ActionSnooze, Label: l.Text(msgActionSnooze)})
		}

		if a.MissionsComplete() {
			c.Actions = append(c.Actions, Action{ID: ActionStop, Label: l.Text(msgActionStop)})
		} else {
			c.Actions = append(c.Actions, Action{ID: ActionCompleteMission, Label: l.Text(msgActionCompleteMission)})
		}
	case Snoozed:
		c.Title = l.Text(msgSnoozedTitle)
		c.Body = l.Text(msgSnoozedBody, label, formatClock(v.Until))
		c.Actions = []Action{dismiss(l)}
	case Missed:
		c.Title = l.Text(msgMissedTitle)
		c.Body = l.Text(msgMissedBody, label, formatClock(v.At))
		c.Actions = []Action{dismiss(l)}
	default:
		panic(fmt.Sprintf("notification: unknown variant %T", v))
	}

	return c
}

func dismiss(l *Localizer) Action {
	return Action{ID: ActionDismiss, Label: l.Text(msgActionDismiss)}
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}

	return t.Format(clockFormat)
}

// validTarget reports whether the variant carries an alarm.
func validTarget(v Variant) error {
	if v == nil || v.Target() == nil {
		return fmt.Errorf("notification target is not set: %w", domain.ErrInvalidAlarm)
	}

	return nil
}
