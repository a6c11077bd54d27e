package metrics

import "time"

// Recorder receives lifecycle observations.
type Recorder interface {
	// IncTransition counts a state change.
	IncTransition(from, to string)
	// IncRejection counts a refused transition.
	IncRejection(reason string)
	// IncTrigger counts a delivered trigger.
	IncTrigger(kind string)
	// IncTriggerFailure counts a trigger whose handling failed after all retries.
	IncTriggerFailure(kind string)
	// IncRetry counts a retried trigger delivery.
	IncRetry(kind string)
	// ObserveTransition records how long a use case held the alarm lock.
	ObserveTransition(useCase string, d time.Duration)
	// SetRinging reports whether the ringing resource is held.
	SetRinging(held bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncTransition(string, string)            {}
func (Nop) IncRejection(string)                     {}
func (Nop) IncTrigger(string)                       {}
func (Nop) IncTriggerFailure(string)                {}
func (Nop) IncRetry(string)                         {}
func (Nop) ObserveTransition(string, time.Duration) {}
func (Nop) SetRinging(bool)                         {}
