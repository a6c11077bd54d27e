package alarm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextOccurrence returns the earliest instant strictly after ref that matches
// the time of day and, when days is not empty, one of the weekdays.
// The result is computed in the location of ref.
func NextOccurrence(at TimeOfDay, days Weekdays, ref time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(cronSpec(at, days))
	if err != nil {
		return time.Time{}, fmt.Errorf("build schedule for %s %s: %w", at, days, ErrInvalidAlarm)
	}

	next := schedule.Next(ref)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no upcoming instant for %s %s: %w", at, days, ErrInvalidAlarm)
	}

	return next, nil
}

// NextTrigger returns the next MAIN instant of the alarm after ref.
func (a *Alarm) NextTrigger(ref time.Time) (time.Time, error) {
	return NextOccurrence(a.Time, a.Days, ref)
}

// cronSpec renders a standard five-field cron expression.
func cronSpec(at TimeOfDay, days Weekdays) string {
	dow := "*"

	if len(days) > 0 {
		fields := make([]string, 0, len(days))
		for _, day := range days {
			fields = append(fields, strconv.Itoa(int(day)))
		}

		dow = strings.Join(fields, ",")
	}

	return fmt.Sprintf("%d %d * * %s", at.Minute, at.Hour, dow)
}
