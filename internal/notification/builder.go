package notification

import (
	"time"
)

// Priority orders notifications on the surface.
type Priority string

const (
	// PriorityDefault is used for informational notifications.
	PriorityDefault Priority = "default"
	// PriorityMax interrupts the user.
	PriorityMax Priority = "max"
)

// Notification is the platform notification handed to a Poster.
// ID is the alarm id, so a newer notification replaces the previous one for the alarm.
type Notification struct {
	ID               string    `json:"id"`
	Kind             Kind      `json:"kind"`
	Channel          string    `json:"channel"`
	Priority         Priority  `json:"priority"`
	Ongoing          bool      `json:"ongoing"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Actions          []Action  `json:"actions"`
	ContentIntent    Intent    `json:"content_intent"`
	FullScreenIntent *Intent   `json:"full_screen_intent,omitempty"`
	PostedAt         time.Time `json:"posted_at"`
}

// Build turns content into a notification.
func Build(c Content, postedAt time.Time) Notification {
	n := Notification{
		ID:            c.AlarmID,
		Kind:          c.Kind,
		Channel:       "alarm_" + string(c.Kind),
		Priority:      PriorityDefault,
		Title:         c.Title,
		Body:          c.Body,
		Actions:       c.Actions[:min(len(c.Actions), MaxActions)],
		ContentIntent: c.ContentIntent,
		PostedAt:      postedAt,
	}

	if c.Kind == KindRinging {
		n.Priority = PriorityMax
		n.Ongoing = true
		n.FullScreenIntent = c.FullScreen
	}

	return n
}
