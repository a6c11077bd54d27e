package notification

import (
	"sync"
	"time"
)

// Session remembers which upcoming notifications were shown during one process lifetime.
// It is created by the daemon and passed down explicitly.
type Session struct {
	mu    sync.Mutex
	shown map[string]time.Time
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{shown: make(map[string]time.Time)}
}

// markShown records that the upcoming notification for alarmID at at was shown.
// It reports false when it was already shown.
func (s *Session) markShown(alarmID string, at time.Time) bool {
	if s == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.shown[alarmID]; ok && previous.Equal(at) {
		return false
	}

	s.shown[alarmID] = at

	return true
}

// Forget drops the record for alarmID so the next upcoming notification is shown again.
func (s *Session) Forget(alarmID string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.shown, alarmID)
}
