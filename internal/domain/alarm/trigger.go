package alarm

import (
	"fmt"
	"strings"
	"time"
)

// TriggerKind identifies why a scheduled wake-up fires.
type TriggerKind string

const (
	// TriggerMain is the primary fire time.
	TriggerMain TriggerKind = "MAIN"
	// TriggerSnooze is the fire time after a snooze.
	TriggerSnooze TriggerKind = "SNOOZE"
	// TriggerTimeout is the ring episode watchdog.
	TriggerTimeout TriggerKind = "TIMEOUT"
)

// ParseTriggerKind parses the wire representation of a trigger kind.
func ParseTriggerKind(s string) (TriggerKind, error) {
	kind := TriggerKind(strings.ToUpper(strings.TrimSpace(s)))

	switch kind {
	case TriggerMain, TriggerSnooze, TriggerTimeout:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown trigger kind %q", s)
	}
}

// Trigger is a wake-up armed for an alarm.
type Trigger struct {
	// AlarmID is the alarm the trigger belongs to.
	AlarmID string `json:"alarm_id"`
	// Kind is the trigger kind.
	Kind TriggerKind `json:"kind"`
	// At is the instant the trigger fires at.
	At time.Time `json:"at"`
}
