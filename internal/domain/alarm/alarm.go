package alarm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// State is the lifecycle state of an alarm.
type State string

const (
	// StateScheduled means the alarm waits for its next MAIN trigger.
	StateScheduled State = "SCHEDULED"
	// StateRinging means a ring episode is in progress.
	StateRinging State = "RINGING"
	// StateSnoozed means the ring episode is paused until the SNOOZE trigger fires.
	StateSnoozed State = "SNOOZED"
	// StateMissed means the last ring episode of a one-time alarm timed out.
	StateMissed State = "MISSED"
	// StateDismissed means the last ring episode of a one-time alarm was dismissed.
	StateDismissed State = "DISMISSED"
)

// ParseState converts the persisted representation into a State.
func ParseState(s string) (State, error) {
	state := State(strings.ToUpper(strings.TrimSpace(s)))

	switch state {
	case StateScheduled, StateRinging, StateSnoozed, StateMissed, StateDismissed:
		return state, nil
	case "":
		return StateScheduled, nil
	default:
		return "", fmt.Errorf("unknown alarm state %q: %w", s, ErrInvalidAlarm)
	}
}

// InEpisode reports whether the state belongs to a live ring episode.
func (s State) InEpisode() bool {
	return s == StateRinging || s == StateSnoozed
}

// TimeOfDay is the wall-clock time an alarm rings at.
type TimeOfDay struct {
	// Hour is in the 0-23 range.
	Hour int `json:"hour" yaml:"hour"`
	// Minute is in the 0-59 range.
	Minute int `json:"minute" yaml:"minute"`
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses the HH:MM representation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, ErrInvalidAlarm)
	}

	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Snooze holds the snooze settings and the counter of the current ring episode.
type Snooze struct {
	// IntervalMinutes is the delay between a snooze and the next ring.
	IntervalMinutes int `json:"interval_minutes"`
	// MaxCount is how many snoozes a single ring episode allows.
	MaxCount int `json:"max_count"`
	// Count is how many times the current ring episode was snoozed.
	Count int `json:"count"`
}

// Interval returns the snooze delay as a duration.
func (s Snooze) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Alarm is the aggregate root of the ring lifecycle.
type Alarm struct {
	// ID is the stable identifier, also used as the notification id.
	ID string
	// Time is the time of day the alarm rings at.
	Time TimeOfDay
	// Days is the repeat set; empty means a one-time alarm.
	Days Weekdays
	// Label is the user-facing title.
	Label string
	// Enabled reports whether the alarm takes part in scheduling.
	Enabled bool
	// Sound references the audio played while ringing.
	Sound string
	// Volume is the playback volume in percent.
	Volume int
	// Vibrate enables vibration while ringing.
	Vibrate bool
	// Snooze holds the snooze settings and counter.
	Snooze Snooze
	// Missions is the configured mission list; ring episodes work on a snapshot of it.
	Missions []Mission
	// State is the lifecycle state.
	State State
	// NextTriggerAt is the instant of the armed MAIN or SNOOZE trigger, zero when none.
	NextTriggerAt time.Time
	// Episode is the live ring episode, nil outside RINGING and SNOOZED.
	Episode *Episode
	// UpdatedAt is when the aggregate was last persisted.
	UpdatedAt time.Time
}

// ErrInvalidAlarm marks aggregates that violate field constraints.
var ErrInvalidAlarm = errors.New("invalid alarm")

const (
	maxHour   = 23
	maxMinute = 59
	maxVolume = 100
)

// Validate checks field ranges and the snooze counter invariant.
func (a *Alarm) Validate() error {
	if a == nil {
		return fmt.Errorf("alarm is not set: %w", ErrInvalidAlarm)
	}

	switch {
	case a.Time.Hour < 0 || a.Time.Hour > maxHour:
		return fmt.Errorf("hour %d out of range: %w", a.Time.Hour, ErrInvalidAlarm)
	case a.Time.Minute < 0 || a.Time.Minute > maxMinute:
		return fmt.Errorf("minute %d out of range: %w", a.Time.Minute, ErrInvalidAlarm)
	case a.Volume < 0 || a.Volume > maxVolume:
		return fmt.Errorf("volume %d out of range: %w", a.Volume, ErrInvalidAlarm)
	case a.Snooze.MaxCount < 0:
		return fmt.Errorf("snooze max count %d is negative: %w", a.Snooze.MaxCount, ErrInvalidAlarm)
	case a.Snooze.MaxCount > 0 && a.Snooze.IntervalMinutes <= 0:
		return fmt.Errorf("snooze interval must be positive: %w", ErrInvalidAlarm)
	case a.Snooze.Count < 0 || a.Snooze.Count > a.Snooze.MaxCount:
		return fmt.Errorf("snooze count %d exceeds max %d: %w", a.Snooze.Count, a.Snooze.MaxCount, ErrInvalidAlarm)
	}

	for _, day := range a.Days {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("weekday %d out of range: %w", day, ErrInvalidAlarm)
		}
	}

	return nil
}

// IsRepeating reports whether the alarm has at least one repeat day.
func (a *Alarm) IsRepeating() bool {
	return len(a.Days) > 0
}

// CanSnooze reports whether the current ring episode has snoozes left.
func (a *Alarm) CanSnooze() bool {
	return a.Snooze.Count < a.Snooze.MaxCount
}

// MissionsComplete reports whether dismissal is unblocked for the current episode.
func (a *Alarm) MissionsComplete() bool {
	return a.Episode == nil || a.Episode.Done()
}

// Clone returns a deep copy of the alarm.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.Days = slices.Clone(a.Days)
	cloned.Missions = cloneMissions(a.Missions)
	cloned.Episode = a.Episode.Clone()

	return &cloned
}

// EndEpisode clears the ring episode and resets the snooze counter.
func (a *Alarm) EndEpisode() {
	a.Episode = nil
	a.Snooze.Count = 0
}
