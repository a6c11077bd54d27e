package notification

import (
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Kind is the type key of a notification variant.
type Kind string

const (
	// KindUpcoming announces an alarm that rings soon.
	KindUpcoming Kind = "upcoming"
	// KindRinging is shown while the alarm rings.
	KindRinging Kind = "ringing"
	// KindSnoozed is shown while the alarm is snoozed.
	KindSnoozed Kind = "snoozed"
	// KindMissed reports a ring episode nobody answered.
	KindMissed Kind = "missed"
)

// Variant is one of Upcoming, Ringing, Snoozed or Missed.
type Variant interface {
	// Kind returns the type key.
	Kind() Kind
	// Target returns the alarm the notification is about.
	Target() *domain.Alarm

	sealed()
}

// Upcoming announces the next MAIN trigger.
type Upcoming struct {
	Alarm *domain.Alarm
	At    time.Time
}

// Ringing accompanies a live ring.
type Ringing struct {
	Alarm *domain.Alarm
}

// Snoozed tells when a snoozed alarm rings again.
type Snoozed struct {
	Alarm *domain.Alarm
	Until time.Time
}

// Missed reports a ring episode that timed out.
type Missed struct {
	Alarm *domain.Alarm
	At    time.Time
}

func (Upcoming) Kind() Kind { return KindUpcoming }
func (Ringing) Kind() Kind  { return KindRinging }
func (Snoozed) Kind() Kind  { return KindSnoozed }
func (Missed) Kind() Kind   { return KindMissed }

func (v Upcoming) Target() *domain.Alarm { return v.Alarm }
func (v Ringing) Target() *domain.Alarm  { return v.Alarm }
func (v Snoozed) Target() *domain.Alarm  { return v.Alarm }
func (v Missed) Target() *domain.Alarm   { return v.Alarm }

func (Upcoming) sealed() {}
func (Ringing) sealed()  {}
func (Snoozed) sealed()  {}
func (Missed) sealed()   {}
