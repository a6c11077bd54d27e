package server

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/notification"
)

func testSettings(t *testing.T, driver string) *config.Config {
	t.Helper()

	settings := &config.Config{
		ServerAddress: "127.0.0.1:7070",
		Store: config.StoreConfig{
			Driver: driver,
			DSN:    filepath.Join(t.TempDir(), "alarms.db"),
		},
	}

	require.NoError(t, config.Validate(settings))

	return settings
}

// TestResolveListenAddress checks override precedence and port extraction.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("clock.local:7070", "")
	require.NoError(t, err)
	require.Equal(t, ":7070", address)

	address, err = resolveListenAddress("clock.local:7070", "127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestDaemon_RingAndDismiss drives an injected trigger through the assembled daemon.
func TestDaemon_RingAndDismiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	d, err := newDaemon(ctx, testSettings(t, config.DriverMemory), clockwork.NewRealClock())
	require.NoError(t, err)

	d.start(ctx)
	t.Cleanup(func() { d.stop(ctx) })

	saved, err := d.coordinator.Save(ctx, &domain.Alarm{
		Time:    domain.TimeOfDay{Hour: 7},
		Days:    domain.NewWeekdays(time.Monday),
		Enabled: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.Snooze{IntervalMinutes: config.DefaultSnoozeInterval, MaxCount: config.DefaultSnoozeCount},
		saved.Alarm.Snooze)
	require.Len(t, d.scheduler.Armed(saved.Alarm.ID), 1)

	d.dispatcher.Submit(domain.Trigger{AlarmID: saved.Alarm.ID, Kind: domain.TriggerMain})

	require.Eventually(t, func() bool {
		holder, ok := d.ringer.Holder()

		return ok && holder == saved.Alarm.ID
	}, 2*time.Second, 10*time.Millisecond)

	ringingAlarm, err := d.coordinator.Get(ctx, saved.Alarm.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateRinging, ringingAlarm.State)

	result, err := d.coordinator.Dismiss(ctx, saved.Alarm.ID)
	require.NoError(t, err)
	require.False(t, result.Rejected())
	require.Equal(t, domain.StateScheduled, result.Alarm.State)

	_, held := d.ringer.Holder()
	require.False(t, held)
}

// TestDaemon_SQLiteSurvivesRestart checks that a second daemon reconciles the stored alarms.
func TestDaemon_SQLiteSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := testSettings(t, config.DriverSQLite)

	first, err := newDaemon(ctx, settings, clockwork.NewRealClock())
	require.NoError(t, err)

	first.start(ctx)

	saved, err := first.coordinator.Save(ctx, &domain.Alarm{
		Time:    domain.TimeOfDay{Hour: 6, Minute: 45},
		Days:    domain.NewWeekdays(time.Tuesday, time.Thursday),
		Label:   "Gym",
		Enabled: true,
	})
	require.NoError(t, err)

	first.stop(ctx)

	second, err := newDaemon(ctx, settings, clockwork.NewRealClock())
	require.NoError(t, err)

	second.start(ctx)
	t.Cleanup(func() { second.stop(ctx) })

	restored, err := second.coordinator.Get(ctx, saved.Alarm.ID)
	require.NoError(t, err)
	require.Equal(t, "Gym", restored.Label)
	require.Equal(t, domain.StateScheduled, restored.State)

	armed := second.scheduler.Armed(saved.Alarm.ID)
	require.Len(t, armed, 1)
	require.Equal(t, domain.TriggerMain, armed[0].Kind)
	require.Equal(t, saved.Alarm.NextTriggerAt.Unix(), armed[0].At.Unix())
}

// TestDaemon_ApplySettings ensures runtime settings are hot-reloaded.
func TestDaemon_ApplySettings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	d, err := newDaemon(ctx, testSettings(t, config.DriverMemory), clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { d.stop(ctx) })

	d.start(ctx)

	updated := testSettings(t, config.DriverMemory)
	updated.Log.Level = logger.Level().String()
	updated.Ringing.Timeout = config.Duration(3 * time.Minute)
	updated.Ringing.ExactSchedulingDisabled = true

	d.applySettings(ctx, updated)

	require.Equal(t, 3*time.Minute, d.coordinator.RingTimeout())
	require.False(t, d.scheduler.ExactSchedulingAllowed())
}

// TestDaemon_RestoredExactSchedulingRearms ensures alarms left unarmed while exact
// scheduling was denied are armed again once it is allowed.
func TestDaemon_RestoredExactSchedulingRearms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := testSettings(t, config.DriverMemory)

	d, err := newDaemon(ctx, settings, clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { d.stop(ctx) })

	d.start(ctx)

	saved, err := d.coordinator.Save(ctx, &domain.Alarm{
		Time:    domain.TimeOfDay{Hour: 6, Minute: 30},
		Days:    domain.NewWeekdays(time.Monday),
		Enabled: true,
	})
	require.NoError(t, err)

	id := saved.Alarm.ID

	denied := testSettings(t, config.DriverMemory)
	denied.Log.Level = logger.Level().String()
	denied.Ringing.ExactSchedulingDisabled = true
	d.applySettings(ctx, denied)

	err = d.coordinator.HandleTrigger(ctx, domain.Trigger{AlarmID: id, Kind: domain.TriggerMain})
	require.ErrorIs(t, err, domain.ErrSchedulingDenied)
	require.Empty(t, d.scheduler.Armed(id))

	allowed := testSettings(t, config.DriverMemory)
	allowed.Log.Level = logger.Level().String()
	d.applySettings(ctx, allowed)

	armed := d.scheduler.Armed(id)
	require.Len(t, armed, 1)
	require.Equal(t, domain.TriggerMain, armed[0].Kind)
	require.True(t, armed[0].At.After(time.Now()))

	stored, err := d.coordinator.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StateScheduled, stored.State)
}

// TestDaemon_UnknownDriver ensures the store selection rejects unknown drivers.
func TestDaemon_UnknownDriver(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, config.DriverMemory)
	settings.Store.Driver = "postgres"

	_, err := newDaemon(context.Background(), settings, clockwork.NewRealClock())
	require.Error(t, err)
}

// TestOpenPoster picks the log poster by default and the desktop poster when enabled.
func TestOpenPoster(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, config.DriverMemory)

	poster, err := openPoster(settings)
	require.NoError(t, err)
	require.IsType(t, notification.LogPoster{}, poster)

	settings.DesktopNotifications = true

	poster, err = openPoster(settings)
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		require.ErrorIs(t, err, notification.ErrUnsupportedOS)

		return
	}

	require.NoError(t, err)
	require.IsType(t, &notification.DesktopPoster{}, poster)
}
