package alarm

import (
	"context"
	"slices"
	"strings"
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Repository defines persistence operations for alarms.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Alarm, error)
	List(ctx context.Context) ([]*domain.Alarm, error)
	Save(ctx context.Context, alarm *domain.Alarm) error
	Delete(ctx context.Context, id string) error
	// Watch streams a snapshot of all alarms, first immediately and then after every mutation.
	// Slow readers only ever see the newest snapshot. The channel closes with the context.
	Watch(ctx context.Context) <-chan []*domain.Alarm
	Close() error
}

// ErrNotFound is returned when the alarm does not exist.
var ErrNotFound = domain.ErrNotFound

// sortAlarms orders alarms by time of day, then by id.
func sortAlarms(alarms []*domain.Alarm) {
	slices.SortFunc(alarms, func(a, b *domain.Alarm) int {
		if a.Time.Hour != b.Time.Hour {
			return a.Time.Hour - b.Time.Hour
		}

		if a.Time.Minute != b.Time.Minute {
			return a.Time.Minute - b.Time.Minute
		}

		return strings.Compare(a.ID, b.ID)
	})
}

// hub fans snapshots out to Watch subscribers.
type hub struct {
	// mu serializes publishing and subscription changes.
	mu sync.Mutex
	// subscribers holds one single-slot channel per subscriber.
	subscribers map[chan []*domain.Alarm]struct{}
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[chan []*domain.Alarm]struct{}),
	}
}

// subscribe registers a subscriber seeded with the initial snapshot.
func (h *hub) subscribe(ctx context.Context, initial []*domain.Alarm) <-chan []*domain.Alarm {
	ch := make(chan []*domain.Alarm, 1)
	ch <- initial

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()

	return ch
}

// publish replaces any unread snapshot with the new one.
func (h *hub) publish(snapshot []*domain.Alarm) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case <-ch:
		default:
		}

		ch <- cloneAll(snapshot)
	}
}

// closeAll closes every subscriber channel.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

func cloneAll(alarms []*domain.Alarm) []*domain.Alarm {
	cloned := make([]*domain.Alarm, 0, len(alarms))
	for _, a := range alarms {
		cloned = append(cloned, a.Clone())
	}

	return cloned
}
