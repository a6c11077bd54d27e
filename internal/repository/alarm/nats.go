package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// NATSRepository persists alarms as JSON values in a JetStream key-value bucket.
type NATSRepository struct {
	// nc is the owned NATS connection.
	nc *nats.Conn
	// kv is the alarm bucket.
	kv nats.KeyValue
	// hub publishes snapshots to watchers.
	hub *hub
}

// record is the persisted alarm schema.
type record struct {
	ID            string           `json:"id"`
	Hour          int              `json:"hour"`
	Minute        int              `json:"minute"`
	Days          domain.Weekdays  `json:"days"`
	Label         string           `json:"label"`
	Enabled       bool             `json:"enabled"`
	SoundRef      string           `json:"sound_ref"`
	Volume        int              `json:"volume"`
	Vibrate       bool             `json:"vibrate"`
	Snooze        domain.Snooze    `json:"snooze"`
	Missions      []domain.Mission `json:"missions"`
	State         domain.State     `json:"state"`
	NextTriggerAt *time.Time       `json:"next_trigger_at,omitempty"`
	Episode       *domain.Episode  `json:"episode,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewNATSRepository connects to NATS and opens (or creates) the bucket.
func NewNATSRepository(url, bucket string) (*NATSRepository, error) {
	nc, err := nats.Connect(url, nats.Name("alarm-clockd"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "alarm clock aggregates",
			History:     1,
		})
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}

	return &NATSRepository{
		nc:  nc,
		kv:  kv,
		hub: newHub(),
	}, nil
}

// Get returns the alarm or ErrNotFound.
func (r *NATSRepository) Get(_ context.Context, id string) (*domain.Alarm, error) {
	entry, err := r.kv.Get(id)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get alarm: %w", err)
	}

	return decodeRecord(entry.Value())
}

// List returns all alarms ordered by time of day.
func (r *NATSRepository) List(ctx context.Context) ([]*domain.Alarm, error) {
	keys, err := r.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("list keys: %w", err)
	}

	alarms := make([]*domain.Alarm, 0, len(keys))

	for _, key := range keys {
		a, err := r.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// Deleted between Keys and Get.
			continue
		}

		if err != nil {
			return nil, err
		}

		alarms = append(alarms, a)
	}

	sortAlarms(alarms)

	return alarms, nil
}

// Save writes the alarm value unconditionally.
func (r *NATSRepository) Save(ctx context.Context, a *domain.Alarm) error {
	body, err := json.Marshal(toRecord(a))
	if err != nil {
		return fmt.Errorf("encode alarm: %w", err)
	}

	if _, err = r.kv.Put(a.ID, body); err != nil {
		return fmt.Errorf("put alarm: %w", err)
	}

	r.notify(ctx)

	return nil
}

// Delete removes the alarm key; deleting an unknown id is not an error.
func (r *NATSRepository) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(id); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("delete alarm: %w", err)
	}

	r.notify(ctx)

	return nil
}

// Watch streams alarm snapshots until the context is canceled.
func (r *NATSRepository) Watch(ctx context.Context) <-chan []*domain.Alarm {
	snapshot, err := r.List(ctx)
	if err != nil {
		snapshot = nil
	}

	return r.hub.subscribe(ctx, snapshot)
}

// Close closes the NATS connection.
func (r *NATSRepository) Close() error {
	r.hub.closeAll()
	r.nc.Close()

	return nil
}

func (r *NATSRepository) notify(ctx context.Context) {
	snapshot, err := r.List(ctx)
	if err != nil {
		return
	}

	r.hub.publish(snapshot)
}

func toRecord(a *domain.Alarm) record {
	rec := record{
		ID:        a.ID,
		Hour:      a.Time.Hour,
		Minute:    a.Time.Minute,
		Days:      a.Days,
		Label:     a.Label,
		Enabled:   a.Enabled,
		SoundRef:  a.Sound,
		Volume:    a.Volume,
		Vibrate:   a.Vibrate,
		Snooze:    a.Snooze,
		Missions:  nonNilMissions(a.Missions),
		State:     a.State,
		Episode:   a.Episode,
		UpdatedAt: a.UpdatedAt,
	}

	if !a.NextTriggerAt.IsZero() {
		next := a.NextTriggerAt
		rec.NextTriggerAt = &next
	}

	return rec
}

func decodeRecord(data []byte) (*domain.Alarm, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode alarm: %w", err)
	}

	state, err := domain.ParseState(string(rec.State))
	if err != nil {
		return nil, err
	}

	a := &domain.Alarm{
		ID:        rec.ID,
		Time:      domain.TimeOfDay{Hour: rec.Hour, Minute: rec.Minute},
		Days:      rec.Days,
		Label:     rec.Label,
		Enabled:   rec.Enabled,
		Sound:     rec.SoundRef,
		Volume:    rec.Volume,
		Vibrate:   rec.Vibrate,
		Snooze:    rec.Snooze,
		Missions:  rec.Missions,
		State:     state,
		Episode:   rec.Episode,
		UpdatedAt: rec.UpdatedAt,
	}

	if rec.NextTriggerAt != nil {
		a.NextTriggerAt = *rec.NextTriggerAt
	}

	return a, nil
}
