package alarm

import (
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/lifecycle"
	"github.com/oshokin/alarm-clock/internal/mission"
)

// AlarmMessage is the wire form of an alarm.
type AlarmMessage struct {
	ID            string           `json:"id,omitempty"`
	Time          string           `json:"time"`
	Days          domain.Weekdays  `json:"days,omitempty"`
	Label         string           `json:"label,omitempty"`
	Enabled       bool             `json:"enabled"`
	Sound         string           `json:"sound,omitempty"`
	Volume        int              `json:"volume"`
	Vibrate       bool             `json:"vibrate"`
	Snooze        domain.Snooze    `json:"snooze"`
	Missions      []domain.Mission `json:"missions,omitempty"`
	State         string           `json:"state,omitempty"`
	NextTriggerAt *time.Time       `json:"next_trigger_at,omitempty"`
	Episode       *domain.Episode  `json:"episode,omitempty"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

// IDRequest addresses a single alarm.
type IDRequest struct {
	ID string `json:"id"`
}

// SaveRequest creates or updates an alarm.
type SaveRequest struct {
	Alarm *AlarmMessage `json:"alarm"`
}

// ToggleRequest enables or disables an alarm.
type ToggleRequest struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// TriggerRequest injects a trigger as if the scheduler fired it.
type TriggerRequest struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// ListRequest lists every alarm.
type ListRequest struct{}

// ListResponse carries the alarms ordered by time of day.
type ListResponse struct {
	Alarms []*AlarmMessage `json:"alarms"`
}

// AlarmResponse is the outcome of a lifecycle operation.
type AlarmResponse struct {
	// Alarm is the alarm after the operation, nil when it no longer exists.
	Alarm *AlarmMessage `json:"alarm,omitempty"`
	// Rejected reports a benign refusal; the alarm was not changed.
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	// Signal is the mission flow instruction for the presentation surface.
	Signal *mission.Signal `json:"signal,omitempty"`
}

// Empty is returned by operations without a payload.
type Empty struct{}

// ToAlarmMessage converts a domain alarm into its wire form.
func ToAlarmMessage(a *domain.Alarm) *AlarmMessage {
	if a == nil {
		return nil
	}

	a = a.Clone()

	return &AlarmMessage{
		ID:            a.ID,
		Time:          a.Time.String(),
		Days:          a.Days,
		Label:         a.Label,
		Enabled:       a.Enabled,
		Sound:         a.Sound,
		Volume:        a.Volume,
		Vibrate:       a.Vibrate,
		Snooze:        a.Snooze,
		Missions:      a.Missions,
		State:         string(a.State),
		NextTriggerAt: optionalTime(a.NextTriggerAt),
		Episode:       a.Episode,
		UpdatedAt:     optionalTime(a.UpdatedAt),
	}
}

// ToDomain converts the editable fields of the message into a domain alarm.
// Lifecycle fields are owned by the daemon and ignored.
func (m *AlarmMessage) ToDomain() (*domain.Alarm, error) {
	at, err := domain.ParseTimeOfDay(m.Time)
	if err != nil {
		return nil, err
	}

	return &domain.Alarm{
		ID:       m.ID,
		Time:     at,
		Days:     domain.NewWeekdays(m.Days...),
		Label:    m.Label,
		Enabled:  m.Enabled,
		Sound:    m.Sound,
		Volume:   m.Volume,
		Vibrate:  m.Vibrate,
		Snooze:   m.Snooze,
		Missions: m.Missions,
	}, nil
}

func toAlarmResponse(result lifecycle.Result) *AlarmResponse {
	response := &AlarmResponse{
		Alarm:  ToAlarmMessage(result.Alarm),
		Signal: result.Signal,
	}

	if result.Rejection != nil {
		response.Rejected = true
		response.Reason = string(result.Rejection.Reason)
		response.Message = result.Rejection.Message
	}

	return response
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
