package alarm

import (
	"context"
	"sync"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// MemoryRepository keeps alarms in process memory.
type MemoryRepository struct {
	// mu protects alarms.
	mu sync.RWMutex
	// alarms maps alarm id to the stored aggregate.
	alarms map[string]*domain.Alarm
	// hub publishes snapshots to watchers.
	hub *hub
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		alarms: make(map[string]*domain.Alarm),
		hub:    newHub(),
	}
}

// Get returns a copy of the alarm or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, id string) (*domain.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alarms[id]
	if !ok {
		return nil, ErrNotFound
	}

	return a.Clone(), nil
}

// List returns copies of all alarms.
func (r *MemoryRepository) List(_ context.Context) ([]*domain.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked(), nil
}

// Save stores a copy of the alarm, replacing any previous version.
func (r *MemoryRepository) Save(_ context.Context, a *domain.Alarm) error {
	r.mu.Lock()
	r.alarms[a.ID] = a.Clone()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.hub.publish(snapshot)

	return nil
}

// Delete removes the alarm; deleting an unknown id is not an error.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.alarms, id)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.hub.publish(snapshot)

	return nil
}

// Watch streams alarm snapshots until the context is canceled.
func (r *MemoryRepository) Watch(ctx context.Context) <-chan []*domain.Alarm {
	r.mu.RLock()
	snapshot := r.snapshotLocked()
	r.mu.RUnlock()

	return r.hub.subscribe(ctx, snapshot)
}

// Close releases watchers.
func (r *MemoryRepository) Close() error {
	r.hub.closeAll()

	return nil
}

func (r *MemoryRepository) snapshotLocked() []*domain.Alarm {
	alarms := make([]*domain.Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		alarms = append(alarms, a.Clone())
	}

	sortAlarms(alarms)

	return alarms
}
