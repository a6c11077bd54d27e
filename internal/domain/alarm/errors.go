package alarm

import "errors"

var (
	// ErrNotFound is returned when the alarm is no longer persisted.
	ErrNotFound = errors.New("alarm not found")
	// ErrSchedulingDenied is returned when exact scheduling is unavailable.
	ErrSchedulingDenied = errors.New("exact scheduling denied")
	// ErrAlreadyExists is returned when a restored alarm would overwrite a stored one.
	ErrAlreadyExists = errors.New("alarm already exists")
	// ErrPersistence is returned when the alarm store is unavailable.
	ErrPersistence = errors.New("alarm store unavailable")
)

// RejectionReason classifies a rejected transition.
type RejectionReason string

const (
	// RejectSnoozeLimit means the ring episode has no snoozes left.
	RejectSnoozeLimit RejectionReason = "snooze_limit_reached"
	// RejectMissionsIncomplete means dismissal waits for missions.
	RejectMissionsIncomplete RejectionReason = "missions_incomplete"
	// RejectNotRinging means the action needs a live ring episode.
	RejectNotRinging RejectionReason = "not_ringing"
)

// Rejection is a benign refusal of a transition; the alarm was not changed.
type Rejection struct {
	// Reason classifies the rejection.
	Reason RejectionReason
	// Message explains the rejection to the user.
	Message string
}

// Reject builds a rejection.
func Reject(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}
