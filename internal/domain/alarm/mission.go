package alarm

import (
	"maps"
	"time"
)

// Mission is an interactive task that must be completed to silence a ringing alarm.
type Mission struct {
	// ID identifies the mission inside its alarm.
	ID string `json:"id"`
	// Type selects the mission implementation, for example "math" or "shake".
	Type string `json:"type"`
	// Params holds type-specific parameters.
	Params map[string]string `json:"params,omitempty"`
	// Icon references the icon shown in the mission overview.
	Icon string `json:"icon,omitempty"`
}

// Clone returns a deep copy of the mission.
func (m Mission) Clone() Mission {
	m.Params = maps.Clone(m.Params)

	return m
}

func cloneMissions(missions []Mission) []Mission {
	if missions == nil {
		return nil
	}

	cloned := make([]Mission, len(missions))
	for i, m := range missions {
		cloned[i] = m.Clone()
	}

	return cloned
}

// Episode is the span from a MAIN or SNOOZE trigger until the alarm is dismissed or missed.
// Its mission list is a snapshot taken when ringing began and is never touched by edits.
type Episode struct {
	// Missions is the snapshot of the alarm missions at ring entry.
	Missions []Mission `json:"missions"`
	// Completed is the number of snapshot missions completed so far.
	Completed int `json:"completed"`
	// StartedAt is when the alarm started ringing.
	StartedAt time.Time `json:"started_at"`
	// TimeoutAt is when the armed TIMEOUT trigger fires.
	TimeoutAt time.Time `json:"timeout_at"`
}

// NewEpisode snapshots the missions of an alarm entering RINGING.
func NewEpisode(missions []Mission, startedAt time.Time, timeout time.Duration) *Episode {
	return &Episode{
		Missions:  cloneMissions(missions),
		StartedAt: startedAt,
		TimeoutAt: startedAt.Add(timeout),
	}
}

// Done reports whether every snapshot mission is completed.
func (e *Episode) Done() bool {
	return e.Completed >= len(e.Missions)
}

// Clone returns a deep copy of the episode.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}

	cloned := *e
	cloned.Missions = cloneMissions(e.Missions)

	return &cloned
}
