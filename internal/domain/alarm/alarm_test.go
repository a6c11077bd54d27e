package alarm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestAlarmClone verifies that Clone returns a deep copy and handles nil safely.
func TestAlarmClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Alarm)(nil).Clone())

	a := &Alarm{
		ID:       "wake-up",
		Time:     TimeOfDay{Hour: 7},
		Days:     NewWeekdays(time.Monday, time.Wednesday),
		Missions: []Mission{{ID: "m1", Type: "math", Params: map[string]string{"level": "2"}}},
		Episode:  NewEpisode([]Mission{{ID: "m1", Type: "math"}}, time.Unix(100, 0), time.Minute),
	}

	b := a.Clone()
	require.Equal(t, a, b)
	require.NotSame(t, a, b)

	b.Days[0] = time.Friday
	b.Missions[0].Params["level"] = "5"
	b.Episode.Completed = 1

	require.Equal(t, time.Monday, a.Days[0])
	require.Equal(t, "2", a.Missions[0].Params["level"])
	require.Zero(t, a.Episode.Completed)
}

// TestAlarmValidate covers field ranges and the snooze counter invariant.
func TestAlarmValidate(t *testing.T) {
	t.Parallel()

	valid := Alarm{
		Time:   TimeOfDay{Hour: 23, Minute: 59},
		Volume: 100,
		Snooze: Snooze{IntervalMinutes: 5, MaxCount: 2, Count: 2},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(a *Alarm){
		"hour":          func(a *Alarm) { a.Time.Hour = 24 },
		"minute":        func(a *Alarm) { a.Time.Minute = -1 },
		"volume":        func(a *Alarm) { a.Volume = 101 },
		"count":         func(a *Alarm) { a.Snooze.Count = 3 },
		"interval":      func(a *Alarm) { a.Snooze.IntervalMinutes = 0 },
		"weekday range": func(a *Alarm) { a.Days = Weekdays{time.Weekday(9)} },
	}
	for name, mutate := range cases {
		a := valid.Clone()
		mutate(a)
		require.ErrorIs(t, a.Validate(), ErrInvalidAlarm, name)
	}

	require.ErrorIs(t, (*Alarm)(nil).Validate(), ErrInvalidAlarm)
}

// TestMissionsComplete checks dismissal gating against the episode snapshot.
func TestMissionsComplete(t *testing.T) {
	t.Parallel()

	a := &Alarm{}
	require.True(t, a.MissionsComplete())

	a.Episode = NewEpisode([]Mission{{ID: "m1"}, {ID: "m2"}}, time.Now(), time.Minute)
	require.False(t, a.MissionsComplete())

	a.Episode.Completed = 1
	require.False(t, a.MissionsComplete())

	a.Episode.Completed = 2
	require.True(t, a.MissionsComplete())

	a.Episode = NewEpisode(nil, time.Now(), time.Minute)
	require.True(t, a.MissionsComplete())
}

// TestWeekdays verifies normalization, parsing and the JSON form.
func TestWeekdays(t *testing.T) {
	t.Parallel()

	days := NewWeekdays(time.Wednesday, time.Monday, time.Wednesday)
	require.Equal(t, Weekdays{time.Monday, time.Wednesday}, days)
	require.Equal(t, "MON,WED", days.String())
	require.True(t, days.Has(time.Monday))
	require.False(t, days.Has(time.Sunday))

	parsed, err := ParseWeekdays(" monday, Wed ")
	require.NoError(t, err)
	require.Equal(t, days, parsed)

	_, err = ParseWeekdays("MON,XYZ")
	require.ErrorIs(t, err, ErrInvalidAlarm)

	data, err := json.Marshal(days)
	require.NoError(t, err)
	require.JSONEq(t, `["MON","WED"]`, string(data))

	var decoded Weekdays
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, days, decoded)
}

// TestParseState maps persisted strings and rejects unknown ones.
func TestParseState(t *testing.T) {
	t.Parallel()

	state, err := ParseState("ringing")
	require.NoError(t, err)
	require.Equal(t, StateRinging, state)
	require.True(t, state.InEpisode())

	state, err = ParseState("")
	require.NoError(t, err)
	require.Equal(t, StateScheduled, state)
	require.False(t, state.InEpisode())

	_, err = ParseState("exploded")
	require.ErrorIs(t, err, ErrInvalidAlarm)

	kind, err := ParseTriggerKind("timeout")
	require.NoError(t, err)
	require.Equal(t, TriggerTimeout, kind)

	_, err = ParseTriggerKind("later")
	require.Error(t, err)
}
