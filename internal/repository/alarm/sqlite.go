package alarm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// SQLiteRepository persists alarms in a SQLite database, one row per alarm.
// Missions and the ring episode are stored as JSON columns.
type SQLiteRepository struct {
	// db is the database handle, limited to a single connection.
	db *sql.DB
	// hub publishes snapshots to watchers.
	hub *hub
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS alarms (
	id              TEXT PRIMARY KEY,
	hour            INTEGER NOT NULL,
	minute          INTEGER NOT NULL,
	days            TEXT    NOT NULL DEFAULT '',
	label           TEXT    NOT NULL DEFAULT '',
	enabled         INTEGER NOT NULL DEFAULT 0,
	sound_ref       TEXT    NOT NULL DEFAULT '',
	volume          INTEGER NOT NULL DEFAULT 0,
	vibrate         INTEGER NOT NULL DEFAULT 0,
	snooze_interval INTEGER NOT NULL DEFAULT 0,
	snooze_max      INTEGER NOT NULL DEFAULT 0,
	snooze_count    INTEGER NOT NULL DEFAULT 0,
	missions        TEXT    NOT NULL DEFAULT '[]',
	state           TEXT    NOT NULL DEFAULT 'SCHEDULED',
	next_trigger_at INTEGER NOT NULL DEFAULT 0,
	episode         TEXT,
	updated_at      INTEGER NOT NULL DEFAULT 0
);`

const sqliteColumns = `id, hour, minute, days, label, enabled, sound_ref, volume, vibrate,
	snooze_interval, snooze_max, snooze_count, missions, state, next_trigger_at, episode, updated_at`

// NewSQLiteRepository opens (or creates) the database at dsn.
// Use ":memory:" for an in-memory database.
func NewSQLiteRepository(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		hub: newHub(),
	}, nil
}

// Get returns the alarm or ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM alarms WHERE id = ?", id)

	a, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return a, nil
}

// List returns all alarms ordered by time of day.
func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sqliteColumns+" FROM alarms ORDER BY hour, minute, id")
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var alarms []*domain.Alarm

	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return alarms, nil
}

// Save inserts or replaces the alarm row.
func (r *SQLiteRepository) Save(ctx context.Context, a *domain.Alarm) error {
	missions, err := json.Marshal(nonNilMissions(a.Missions))
	if err != nil {
		return fmt.Errorf("encode missions: %w", err)
	}

	var episode sql.NullString

	if a.Episode != nil {
		data, err := json.Marshal(a.Episode)
		if err != nil {
			return fmt.Errorf("encode episode: %w", err)
		}

		episode = sql.NullString{String: string(data), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alarms (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hour = excluded.hour,
			minute = excluded.minute,
			days = excluded.days,
			label = excluded.label,
			enabled = excluded.enabled,
			sound_ref = excluded.sound_ref,
			volume = excluded.volume,
			vibrate = excluded.vibrate,
			snooze_interval = excluded.snooze_interval,
			snooze_max = excluded.snooze_max,
			snooze_count = excluded.snooze_count,
			missions = excluded.missions,
			state = excluded.state,
			next_trigger_at = excluded.next_trigger_at,
			episode = excluded.episode,
			updated_at = excluded.updated_at`,
		a.ID, a.Time.Hour, a.Time.Minute, a.Days.String(), a.Label, a.Enabled, a.Sound, a.Volume, a.Vibrate,
		a.Snooze.IntervalMinutes, a.Snooze.MaxCount, a.Snooze.Count, string(missions), string(a.State),
		toUnixMilli(a.NextTriggerAt), episode, toUnixMilli(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert alarm: %w", err)
	}

	r.notify(ctx)

	return nil
}

// Delete removes the alarm row; deleting an unknown id is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	r.notify(ctx)

	return nil
}

// Watch streams alarm snapshots until the context is canceled.
func (r *SQLiteRepository) Watch(ctx context.Context) <-chan []*domain.Alarm {
	snapshot, err := r.List(ctx)
	if err != nil {
		snapshot = nil
	}

	return r.hub.subscribe(ctx, snapshot)
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	r.hub.closeAll()

	return r.db.Close()
}

func (r *SQLiteRepository) notify(ctx context.Context) {
	snapshot, err := r.List(ctx)
	if err != nil {
		return
	}

	r.hub.publish(snapshot)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row rowScanner) (*domain.Alarm, error) {
	var (
		a                      domain.Alarm
		days, missions, state  string
		episode                sql.NullString
		nextTriggerAt, updated int64
	)

	err := row.Scan(
		&a.ID, &a.Time.Hour, &a.Time.Minute, &days, &a.Label, &a.Enabled, &a.Sound, &a.Volume, &a.Vibrate,
		&a.Snooze.IntervalMinutes, &a.Snooze.MaxCount, &a.Snooze.Count, &missions, &state,
		&nextTriggerAt, &episode, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	if a.Days, err = domain.ParseWeekdays(days); err != nil {
		return nil, fmt.Errorf("decode days of %s: %w", a.ID, err)
	}

	if err = json.Unmarshal([]byte(missions), &a.Missions); err != nil {
		return nil, fmt.Errorf("decode missions of %s: %w", a.ID, err)
	}

	if a.State, err = domain.ParseState(state); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", a.ID, err)
	}

	if episode.Valid && episode.String != "" {
		a.Episode = new(domain.Episode)
		if err = json.Unmarshal([]byte(episode.String), a.Episode); err != nil {
			return nil, fmt.Errorf("decode episode of %s: %w", a.ID, err)
		}
	}

	a.NextTriggerAt = fromUnixMilli(nextTriggerAt)
	a.UpdatedAt = fromUnixMilli(updated)

	return &a, nil
}

func nonNilMissions(missions []domain.Mission) []domain.Mission {
	if missions == nil {
		return []domain.Mission{}
	}

	return missions
}

func toUnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
