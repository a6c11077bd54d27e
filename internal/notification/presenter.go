package notification

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Poster renders notifications on a platform.
type Poster interface {
	Post(ctx context.Context, n Notification) error
	Cancel(ctx context.Context, id string) error
}

// Presenter maps variants and hands them to a Poster.
type Presenter struct {
	poster    Poster
	localizer *Localizer
	clock     clockwork.Clock
}

// NewPresenter creates a presenter.
func NewPresenter(poster Poster, localizer *Localizer, clock clockwork.Clock) *Presenter {
	return &Presenter{
		poster:    poster,
		localizer: localizer,
		clock:     clock,
	}
}

// Show posts the notification for the variant. Upcoming notifications are posted
// once per session and trigger instant.
func (p *Presenter) Show(ctx context.Context, session *Session, v Variant) error {
	if err := validTarget(v); err != nil {
		return err
	}

	if upcoming, ok := v.(Upcoming); ok && !session.markShown(upcoming.Alarm.ID, upcoming.At) {
		return nil
	}

	if v.Kind() != KindUpcoming {
		session.Forget(v.Target().ID)
	}

	n := Build(Map(v, p.localizer), p.clock.Now())

	if err := p.poster.Post(ctx, n); err != nil {
		return fmt.Errorf("post %s notification for alarm %s: %w", n.Kind, n.ID, err)
	}

	return nil
}

// Dismiss removes the notification of the alarm.
func (p *Presenter) Dismiss(ctx context.Context, alarmID string) error {
	if err := p.poster.Cancel(ctx, alarmID); err != nil {
		return fmt.Errorf("cancel notification for alarm %s: %w", alarmID, err)
	}

	return nil
}

// LogPoster writes notifications to the log.
type LogPoster struct{}

// Post logs the notification.
func (LogPoster) Post(ctx context.Context, n Notification) error {
	logger.InfoKV(ctx, "Notification posted",
		"alarm_id", n.ID,
		"kind", n.Kind,
		"title", n.Title,
		"body", n.Body,
		"actions", len(n.Actions),
		"full_screen", n.FullScreenIntent != nil)

	return nil
}

// Cancel logs the cancellation.
func (LogPoster) Cancel(ctx context.Context, id string) error {
	logger.InfoKV(ctx, "Notification cancelled", "alarm_id", id)

	return nil
}
