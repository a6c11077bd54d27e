package alarm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Weekdays is a normalized set of repeat days, sorted from Sunday.
type Weekdays []time.Weekday

// weekdayNames are the short names used in persisted and wire forms.
//
//nolint:gochecknoglobals // Read-only lookup table.
var weekdayNames = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// NewWeekdays builds a normalized set from the provided days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	if len(days) == 0 {
		return nil
	}

	set := slices.Clone(days)
	slices.Sort(set)

	return Weekdays(slices.Compact(set))
}

// ParseWeekdays parses a comma separated list such as "MON,WED".
func ParseWeekdays(s string) (Weekdays, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))

	for _, part := range parts {
		day, err := parseWeekday(part)
		if err != nil {
			return nil, err
		}

		days = append(days, day)
	}

	return NewWeekdays(days...), nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if len(name) > 3 {
		name = name[:3]
	}

	for i, candidate := range weekdayNames {
		if candidate == name {
			return time.Weekday(i), nil
		}
	}

	return 0, fmt.Errorf("unknown weekday %q: %w", s, ErrInvalidAlarm)
}

// Has reports whether the day is in the set.
func (w Weekdays) Has(day time.Weekday) bool {
	return slices.Contains(w, day)
}

// String renders the set as "MON,WED".
func (w Weekdays) String() string {
	names := make([]string, 0, len(w))
	for _, day := range w {
		names = append(names, weekdayNames[day])
	}

	return strings.Join(names, ",")
}

// MarshalJSON encodes the set as a list of short names.
func (w Weekdays) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(w))
	for _, day := range w {
		names = append(names, weekdayNames[day])
	}

	return json.Marshal(names)
}

// UnmarshalJSON decodes a list of short names.
func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decode weekdays: %w", err)
	}

	parsed, err := ParseWeekdays(strings.Join(names, ","))
	if err != nil {
		return err
	}

	*w = parsed

	return nil
}
