package mission

import (
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// SignalKind tells the presentation surface what to show.
type SignalKind string

const (
	// ShowMission asks the surface to display the mission at Index.
	ShowMission SignalKind = "show_mission"
	// ReadyToStop means there were no missions and the alarm can be stopped at once.
	ReadyToStop SignalKind = "ready_to_stop"
	// AllComplete means every mission is done and dismissal is unblocked.
	AllComplete SignalKind = "all_complete"
	// ShowOverview asks the surface to go back to the mission overview.
	ShowOverview SignalKind = "show_overview"
)

// Signal is emitted by Flow operations.
type Signal struct {
	// Kind is what the surface should do.
	Kind SignalKind `json:"kind"`
	// Index is the current mission index.
	Index int `json:"index"`
	// Mission is the mission at Index for ShowMission and ShowOverview.
	Mission *domain.Mission `json:"mission,omitempty"`
}

// Flow is the mission progress of one ring episode.
type Flow struct {
	// Missions is the episode snapshot.
	Missions []domain.Mission
	// Index is the number of completed missions.
	Index int
}

// FromEpisode resumes the flow persisted in the episode. A nil episode has no missions.
func FromEpisode(episode *domain.Episode) Flow {
	if episode == nil {
		return Flow{}
	}

	return Flow{
		Missions: episode.Missions,
		Index:    min(episode.Completed, len(episode.Missions)),
	}
}

// Start restarts the walk from the first mission.
func (f *Flow) Start() Signal {
	f.Index = 0

	if len(f.Missions) == 0 {
		return Signal{Kind: ReadyToStop}
	}

	return f.show(ShowMission)
}

// Completed advances past the current mission.
func (f *Flow) Completed() Signal {
	if f.Done() {
		return Signal{Kind: AllComplete, Index: f.Index}
	}

	f.Index++

	if f.Done() {
		return Signal{Kind: AllComplete, Index: f.Index}
	}

	return f.show(ShowMission)
}

// TimedOut returns to the overview without advancing.
func (f *Flow) TimedOut() Signal {
	if f.Done() {
		return Signal{Kind: AllComplete, Index: f.Index}
	}

	return f.show(ShowOverview)
}

// Current reports the signal for the present position without changing it.
func (f *Flow) Current() Signal {
	switch {
	case len(f.Missions) == 0:
		return Signal{Kind: ReadyToStop}
	case f.Done():
		return Signal{Kind: AllComplete, Index: f.Index}
	default:
		return f.show(ShowMission)
	}
}

// Done reports whether dismissal is unblocked.
func (f *Flow) Done() bool {
	return f.Index >= len(f.Missions)
}

func (f *Flow) show(kind SignalKind) Signal {
	m := f.Missions[f.Index].Clone()

	return Signal{Kind: kind, Index: f.Index, Mission: &m}
}
