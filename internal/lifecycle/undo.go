package lifecycle

import (
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// undoBuffer keeps the most recently deleted alarms.
type undoBuffer struct {
	mu      sync.Mutex
	limit   int
	deleted []*domain.Alarm
}

func newUndoBuffer(limit int) *undoBuffer {
	return &undoBuffer{limit: max(limit, 1)}
}

// push remembers a deleted alarm, evicting the oldest beyond the limit.
func (u *undoBuffer) push(a *domain.Alarm) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.deleted = append(u.deleted, a.Clone())

	if over := len(u.deleted) - u.limit; over > 0 {
		u.deleted = u.deleted[over:]
	}
}

// pop removes and returns the most recent deletion of id.
func (u *undoBuffer) pop(id string) (*domain.Alarm, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := len(u.deleted) - 1; i >= 0; i-- {
		if u.deleted[i].ID != id {
			continue
		}

		a := u.deleted[i]
		u.deleted = append(u.deleted[:i], u.deleted[i+1:]...)

		return a, true
	}

	return nil, false
}
