package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/mission"
	"github.com/oshokin/alarm-clock/internal/notification"
	repository "github.com/oshokin/alarm-clock/internal/repository/alarm"
	"github.com/oshokin/alarm-clock/internal/retry"
	"github.com/oshokin/alarm-clock/internal/ringing"
)

// fakeScheduler keeps armed triggers in memory. MAIN and SNOOZE share a slot.
type fakeScheduler struct {
	mu    sync.Mutex
	armed map[string]map[bool]domain.Trigger
	// deny lists the kinds that fail with ErrSchedulingDenied.
	deny map[domain.TriggerKind]bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: make(map[string]map[bool]domain.Trigger)}
}

func (f *fakeScheduler) Schedule(_ context.Context, alarmID string, kind domain.TriggerKind, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deny[kind] {
		return domain.ErrSchedulingDenied
	}

	if f.armed[alarmID] == nil {
		f.armed[alarmID] = make(map[bool]domain.Trigger)
	}

	f.armed[alarmID][kind == domain.TriggerTimeout] = domain.Trigger{AlarmID: alarmID, Kind: kind, At: at}

	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, alarmID string, kind domain.TriggerKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot := kind == domain.TriggerTimeout
	if t, ok := f.armed[alarmID][slot]; ok && t.Kind == kind {
		delete(f.armed[alarmID], slot)
	}

	return nil
}

func (f *fakeScheduler) CancelAll(_ context.Context, alarmID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.armed, alarmID)

	return nil
}

func (f *fakeScheduler) Armed(alarmID string) []domain.Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()

	triggers := make([]domain.Trigger, 0, 2)
	for _, t := range f.armed[alarmID] {
		triggers = append(triggers, t)
	}

	slices.SortFunc(triggers, func(a, b domain.Trigger) int {
		return a.At.Compare(b.At)
	})

	return triggers
}

func (f *fakeScheduler) setDeny(kinds ...domain.TriggerKind) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deny = make(map[domain.TriggerKind]bool, len(kinds))
	for _, kind := range kinds {
		f.deny[kind] = true
	}
}

// flakyRepository fails saves on demand.
type flakyRepository struct {
	repository.Repository

	mu       sync.Mutex
	failSave bool
}

var errStoreDown = errors.New("store down")

func (f *flakyRepository) Save(ctx context.Context, a *domain.Alarm) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()

	if fail {
		return errStoreDown
	}

	return f.Repository.Save(ctx, a)
}

func (f *flakyRepository) setFailSave(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failSave = fail
}

// recordingPresenter keeps the shown variants.
type recordingPresenter struct {
	mu        sync.Mutex
	shown     []notification.Variant
	dismissed []string
}

func (r *recordingPresenter) Show(_ context.Context, _ *notification.Session, v notification.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shown = append(r.shown, v)

	return nil
}

func (r *recordingPresenter) Dismiss(_ context.Context, alarmID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dismissed = append(r.dismissed, alarmID)

	return nil
}

func (r *recordingPresenter) kinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]notification.Kind, 0, len(r.shown))
	for _, v := range r.shown {
		kinds = append(kinds, v.Kind())
	}

	return kinds
}

// recordingPlayer tracks what is playing.
type recordingPlayer struct {
	mu      sync.Mutex
	playing string
}

func (p *recordingPlayer) Play(_ context.Context, sound string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = sound

	return nil
}

func (p *recordingPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = ""
}

func (p *recordingPlayer) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.playing
}

type harness struct {
	coordinator *Coordinator
	repo        *flakyRepository
	scheduler   *fakeScheduler
	ringer      *ringing.Coordinator
	player      *recordingPlayer
	presenter   *recordingPresenter
	clock       *clockwork.FakeClock
}

// sunday is the evening before Monday, January 1st 2024.
var sunday = time.Date(2023, time.December, 31, 20, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		repo:      &flakyRepository{Repository: repository.NewMemoryRepository()},
		scheduler: newFakeScheduler(),
		player:    &recordingPlayer{},
		presenter: &recordingPresenter{},
		clock:     clockwork.NewFakeClockAt(sunday),
	}

	h.ringer = ringing.NewCoordinator(h.player)
	opts = append([]Option{
		WithClock(h.clock),
		WithRetryPolicy(retry.NewPolicy(time.Millisecond, time.Millisecond, 0)),
		WithRingTimeout(10 * time.Minute),
	}, opts...)

	h.coordinator = NewCoordinator(Dependencies{
		Repository: h.repo,
		Scheduler:  h.scheduler,
		Ringer:     h.ringer,
		Presenter:  h.presenter,
	}, opts...)

	return h
}

func (h *harness) save(t *testing.T, a *domain.Alarm) *domain.Alarm {
	t.Helper()

	result, err := h.coordinator.Save(context.Background(), a)
	require.NoError(t, err)
	require.False(t, result.Rejected())

	return result.Alarm
}

// fire advances the clock to the armed trigger and delivers it.
func (h *harness) fire(t *testing.T, id string, kind domain.TriggerKind) {
	t.Helper()

	require.NoError(t, h.deliver(t, id, kind))
}

// deliver consumes the armed trigger like the scheduler does and hands it to the coordinator.
func (h *harness) deliver(t *testing.T, id string, kind domain.TriggerKind) error {
	t.Helper()

	var armed *domain.Trigger

	for _, trigger := range h.scheduler.Armed(id) {
		if trigger.Kind == kind {
			armed = &trigger
		}
	}

	require.NotNil(t, armed, "no %s trigger armed for %s", kind, id)

	h.clock.Advance(armed.At.Sub(h.clock.Now()))
	require.NoError(t, h.scheduler.Cancel(context.Background(), id, kind))

	return h.coordinator.HandleTrigger(context.Background(), *armed)
}

func (h *harness) stored(t *testing.T, id string) *domain.Alarm {
	t.Helper()

	a, err := h.repo.Get(context.Background(), id)
	require.NoError(t, err)

	return a
}

func repeating(id string, days ...time.Weekday) *domain.Alarm {
	return &domain.Alarm{
		ID:      id,
		Time:    domain.TimeOfDay{Hour: 7},
		Days:    domain.NewWeekdays(days...),
		Enabled: true,
		Sound:   id + ".wav",
		Volume:  70,
		Snooze:  domain.Snooze{IntervalMinutes: 5, MaxCount: 1},
	}
}

func oneTime(id string) *domain.Alarm {
	return repeating(id)
}

// TestDismissReschedulesRepeatingAlarm covers the Monday to Wednesday scenario.
func TestDismissReschedulesRepeatingAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, repeating("a", time.Monday, time.Wednesday))

	monday := time.Date(2024, time.January, 1, 7, 0, 0, 0, time.UTC)
	require.Equal(t, []domain.Trigger{{AlarmID: "a", Kind: domain.TriggerMain, At: monday}}, h.scheduler.Armed("a"))

	h.fire(t, "a", domain.TriggerMain)

	a := h.stored(t, "a")
	require.Equal(t, domain.StateRinging, a.State)
	require.Equal(t, []domain.Trigger{{AlarmID: "a", Kind: domain.TriggerTimeout, At: monday.Add(10 * time.Minute)}}, h.scheduler.Armed("a"))
	require.Equal(t, "a.wav", h.player.current())

	result, err := h.coordinator.Dismiss(ctx, "a")
	require.NoError(t, err)
	require.False(t, result.Rejected())

	wednesday := time.Date(2024, time.January, 3, 7, 0, 0, 0, time.UTC)
	require.Equal(t, []domain.Trigger{{AlarmID: "a", Kind: domain.TriggerMain, At: wednesday}}, h.scheduler.Armed("a"))

	a = h.stored(t, "a")
	require.Equal(t, domain.StateScheduled, a.State)
	require.True(t, a.Enabled)
	require.Zero(t, a.Snooze.Count)
	require.Nil(t, a.Episode)
	require.Equal(t, wednesday, a.NextTriggerAt)
	require.Empty(t, h.player.current())
	require.Contains(t, h.presenter.dismissed, "a")
}

// TestSnoozeLimit covers the snooze counter invariant.
func TestSnoozeLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, repeating("a", time.Monday))
	h.fire(t, "a", domain.TriggerMain)

	ringAt := h.clock.Now()

	result, err := h.coordinator.Snooze(ctx, "a")
	require.NoError(t, err)
	require.False(t, result.Rejected())
	require.Equal(t, 1, result.Alarm.Snooze.Count)
	require.Equal(t, domain.StateSnoozed, result.Alarm.State)
	require.Empty(t, h.player.current())

	snoozeAt := ringAt.Add(5 * time.Minute)
	require.Equal(t, []domain.Trigger{
		{AlarmID: "a", Kind: domain.TriggerSnooze, At: snoozeAt},
		{AlarmID: "a", Kind: domain.TriggerTimeout, At: snoozeAt.Add(10 * time.Minute)},
	}, h.scheduler.Armed("a"))

	h.fire(t, "a", domain.TriggerSnooze)
	require.Equal(t, domain.StateRinging, h.stored(t, "a").State)

	result, err = h.coordinator.Snooze(ctx, "a")
	require.NoError(t, err)
	require.True(t, result.Rejected())
	require.Equal(t, domain.RejectSnoozeLimit, result.Rejection.Reason)

	a := h.stored(t, "a")
	require.Equal(t, 1, a.Snooze.Count)
	require.Equal(t, domain.StateRinging, a.State)
	require.Equal(t, "a.wav", h.player.current())
}

// TestSnoozeConcurrent verifies the per-alarm lock keeps the counter within bounds.
func TestSnoozeConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	a := repeating("a", time.Monday)
	a.Snooze.MaxCount = 3
	h.save(t, a)
	h.fire(t, "a", domain.TriggerMain)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := h.coordinator.Snooze(ctx, "a")
			if err == nil && !result.Rejected() {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	// Only the first snooze finds the alarm ringing.
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, h.stored(t, "a").Snooze.Count)
}

// TestDismissWaitsForMissions covers mission-gated dismissal.
func TestDismissWaitsForMissions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	a := repeating("a", time.Monday)
	a.Missions = []domain.Mission{{ID: "m1", Type: "math"}}
	h.save(t, a)

	h.fire(t, "a", domain.TriggerMain)

	result, err := h.coordinator.Dismiss(ctx, "a")
	require.NoError(t, err)
	require.True(t, result.Rejected())
	require.Equal(t, domain.RejectMissionsIncomplete, result.Rejection.Reason)
	require.Equal(t, domain.StateRinging, h.stored(t, "a").State)

	result, err = h.coordinator.MissionTimedOut(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, mission.ShowOverview, result.Signal.Kind)
	require.Equal(t, 0, h.stored(t, "a").Episode.Completed)

	result, err = h.coordinator.MissionCompleted(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, mission.AllComplete, result.Signal.Kind)
	require.Equal(t, 1, h.stored(t, "a").Episode.Completed)

	result, err = h.coordinator.Dismiss(ctx, "a")
	require.NoError(t, err)
	require.False(t, result.Rejected())
	require.Equal(t, domain.StateScheduled, result.Alarm.State)
}

// TestRingSnapshotsMissions verifies edits during an episode never touch the snapshot.
func TestRingSnapshotsMissions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	a := repeating("a", time.Monday)
	a.Missions = []domain.Mission{{ID: "m1", Type: "math"}}
	h.save(t, a)
	h.fire(t, "a", domain.TriggerMain)

	edited := h.stored(t, "a")
	edited.Missions = nil
	edited.Label = "edited"

	result, err := h.coordinator.Save(ctx, edited)
	require.NoError(t, err)
	require.Equal(t, domain.StateRinging, result.Alarm.State)
	require.Empty(t, result.Alarm.Missions)
	require.Len(t, result.Alarm.Episode.Missions, 1)

	dismiss, err := h.coordinator.Dismiss(ctx, "a")
	require.NoError(t, err)
	require.True(t, dismiss.Rejected())
}

// TestMissedIsIdempotent covers the TIMEOUT transition and its repetition.
func TestMissedIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("repeating", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.save(t, repeating("a", time.Monday, time.Wednesday))
		h.fire(t, "a", domain.TriggerMain)
		h.fire(t, "a", domain.TriggerTimeout)

		once := h.stored(t, "a")
		armed := h.scheduler.Armed("a")

		require.Equal(t, domain.StateScheduled, once.State)
		require.Len(t, armed, 1)
		require.Equal(t, domain.TriggerMain, armed[0].Kind)
		require.True(t, armed[0].At.After(h.clock.Now()))
		require.Equal(t, time.Wednesday, armed[0].At.Weekday())
		require.Equal(t, []notification.Kind{notification.KindRinging, notification.KindMissed}, h.presenter.kinds())

		_, err := h.coordinator.Missed(ctx, "a")
		require.NoError(t, err)

		twice := h.stored(t, "a")
		require.Equal(t, once.State, twice.State)
		require.Equal(t, once.Enabled, twice.Enabled)
		require.Equal(t, once.Snooze, twice.Snooze)
		require.Equal(t, once.NextTriggerAt, twice.NextTriggerAt)
		require.Equal(t, armed, h.scheduler.Armed("a"))
	})

	t.Run("one-time", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.save(t, oneTime("b"))
		h.fire(t, "b", domain.TriggerMain)
		h.fire(t, "b", domain.TriggerTimeout)

		b := h.stored(t, "b")
		require.False(t, b.Enabled)
		require.Equal(t, domain.StateMissed, b.State)
		require.Empty(t, h.scheduler.Armed("b"))

		_, err := h.coordinator.Missed(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, b.State, h.stored(t, "b").State)
		require.Empty(t, h.scheduler.Armed("b"))
	})
}

// TestDismissDisablesOneTimeAlarm covers the one-time terminal branch.
func TestDismissDisablesOneTimeAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, oneTime("a"))
	h.fire(t, "a", domain.TriggerMain)

	result, err := h.coordinator.Stop(ctx, "a")
	require.NoError(t, err)
	require.False(t, result.Rejected())
	require.False(t, result.Alarm.Enabled)
	require.Equal(t, domain.StateDismissed, result.Alarm.State)
	require.Empty(t, h.scheduler.Armed("a"))
	require.True(t, h.stored(t, "a").NextTriggerAt.IsZero())

	// A late MAIN delivery for a disabled alarm changes nothing.
	require.NoError(t, h.coordinator.HandleTrigger(ctx, domain.Trigger{AlarmID: "a", Kind: domain.TriggerMain}))
	require.Equal(t, domain.StateDismissed, h.stored(t, "a").State)
}

// TestNotRingingRejections verifies actions outside an episode are refused.
func TestNotRingingRejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.save(t, repeating("a", time.Monday))

	for name, action := range map[string]func(context.Context, string) (Result, error){
		"snooze":   h.coordinator.Snooze,
		"dismiss":  h.coordinator.Dismiss,
		"complete": h.coordinator.MissionCompleted,
		"timeout":  h.coordinator.MissionTimedOut,
	} {
		result, err := action(ctx, "a")
		require.NoError(t, err, name)
		require.True(t, result.Rejected(), name)
		require.Equal(t, domain.RejectNotRinging, result.Rejection.Reason, name)
	}

	_, err := h.coordinator.Snooze(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestRingingTakeover covers alarm B taking the ringing resource from alarm A.
func TestRingingTakeover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, repeating("a", time.Monday))

	b := repeating("b", time.Monday)
	b.Time.Minute = 1
	h.save(t, b)

	h.fire(t, "a", domain.TriggerMain)

	surfaceA := h.ringer.Surface("a")

	h.fire(t, "b", domain.TriggerMain)

	holder, ok := h.ringer.Holder()
	require.True(t, ok)
	require.Equal(t, "b", holder)
	require.Equal(t, "b.wav", h.player.current())

	select {
	case <-surfaceA:
	default:
		t.Fatal("surface of alarm a was not closed")
	}

	// Dismissing A no longer touches B's playback.
	_, err := h.coordinator.Dismiss(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "b.wav", h.player.current())
}

// TestToggle verifies trigger cancellation and re-arming.
func TestToggle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.save(t, repeating("a", time.Monday))

	result, err := h.coordinator.Toggle(ctx, "a", false)
	require.NoError(t, err)
	require.False(t, result.Alarm.Enabled)
	require.Empty(t, h.scheduler.Armed("a"))

	result, err = h.coordinator.Toggle(ctx, "a", true)
	require.NoError(t, err)
	require.Equal(t, domain.StateScheduled, result.Alarm.State)
	require.Len(t, h.scheduler.Armed("a"), 1)

	// Disabling a ringing alarm ends the episode.
	h.fire(t, "a", domain.TriggerMain)

	result, err = h.coordinator.Toggle(ctx, "a", false)
	require.NoError(t, err)
	require.Equal(t, domain.StateScheduled, result.Alarm.State)
	require.Nil(t, result.Alarm.Episode)
	require.Empty(t, h.scheduler.Armed("a"))
	require.Empty(t, h.player.current())
}

// TestDeleteAndUndo covers swipe deletion in any state.
func TestDeleteAndUndo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.save(t, repeating("a", time.Monday))
	h.fire(t, "a", domain.TriggerMain)

	_, err := h.coordinator.Delete(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, h.scheduler.Armed("a"))
	require.Empty(t, h.player.current())

	_, err = h.repo.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Stale triggers of the deleted alarm are dropped.
	require.NoError(t, h.coordinator.HandleTrigger(ctx, domain.Trigger{AlarmID: "a", Kind: domain.TriggerTimeout}))

	// Deleting twice is a no-op.
	_, err = h.coordinator.Delete(ctx, "a")
	require.NoError(t, err)

	result, err := h.coordinator.Undo(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, domain.StateScheduled, result.Alarm.State)
	require.Nil(t, result.Alarm.Episode)

	armed := h.scheduler.Armed("a")
	require.Len(t, armed, 1)
	require.Equal(t, domain.TriggerMain, armed[0].Kind)
	require.True(t, armed[0].At.After(h.clock.Now()))

	_, err = h.coordinator.Undo(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSchedulingDeniedKeepsState verifies a denied arm leaves state and triggers intact.
func TestSchedulingDeniedKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.save(t, repeating("a", time.Monday))
	h.fire(t, "a", domain.TriggerMain)

	before := h.scheduler.Armed("a")

	h.scheduler.setDeny(domain.TriggerSnooze)

	_, err := h.coordinator.Snooze(ctx, "a")
	require.ErrorIs(t, err, domain.ErrSchedulingDenied)

	a := h.stored(t, "a")
	require.Equal(t, domain.StateRinging, a.State)
	require.Zero(t, a.Snooze.Count)
	require.Equal(t, before, h.scheduler.Armed("a"))
	require.Equal(t, "a.wav", h.player.current())

	h.scheduler.setDeny(domain.TriggerMain)

	_, err = h.coordinator.Save(ctx, repeating("b", time.Friday))
	require.ErrorIs(t, err, domain.ErrSchedulingDenied)

	_, err = h.repo.Get(ctx, "b")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSaveValidates verifies malformed alarms are refused.
func TestSaveValidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	_, err := h.coordinator.Save(ctx, &domain.Alarm{Time: domain.TimeOfDay{Hour: 25}})
	require.ErrorIs(t, err, domain.ErrInvalidAlarm)

	_, err = h.coordinator.Save(ctx, nil)
	require.ErrorIs(t, err, domain.ErrInvalidAlarm)

	created := h.save(t, &domain.Alarm{
		Time:     domain.TimeOfDay{Hour: 6, Minute: 30},
		Enabled:  true,
		Missions: []domain.Mission{{Type: "math"}},
	})
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.Missions[0].ID)

	list, err := h.coordinator.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

// TestSaveAppliesSnoozeDefaults checks that only new alarms without snooze settings get the defaults.
func TestSaveAppliesSnoozeDefaults(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithSnoozeDefaults(10, 2))

	created := h.save(t, &domain.Alarm{Time: domain.TimeOfDay{Hour: 6}, Enabled: true})
	require.Equal(t, domain.Snooze{IntervalMinutes: 10, MaxCount: 2}, created.Snooze)

	custom := h.save(t, repeating("custom", time.Monday))
	require.Equal(t, domain.Snooze{IntervalMinutes: 5, MaxCount: 1}, custom.Snooze)

	created.Snooze = domain.Snooze{}
	updated := h.save(t, created)
	require.Equal(t, domain.Snooze{}, updated.Snooze)
}

// TestPersistenceFailureRestoresTriggers verifies rollback after a failed save.
func TestPersistenceFailureRestoresTriggers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.save(t, repeating("a", time.Monday))
	h.fire(t, "a", domain.TriggerMain)

	before := h.scheduler.Armed("a")

	h.repo.setFailSave(true)

	_, err := h.coordinator.Snooze(ctx, "a")
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.ErrorIs(t, err, errStoreDown)
	require.Equal(t, before, h.scheduler.Armed("a"))

	h.repo.setFailSave(false)

	a := h.stored(t, "a")
	require.Equal(t, domain.StateRinging, a.State)
	require.Zero(t, a.Snooze.Count)
	require.Equal(t, "a.wav", h.player.current())
}

// TestFailedRingKeepsAlarmArmed verifies an alarm is never left without a trigger
// after a ring entry fails on the trigger the scheduler already consumed.
func TestFailedRingKeepsAlarmArmed(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, time.January, 1, 7, 0, 0, 0, time.UTC)
	wednesday := time.Date(2024, time.January, 3, 7, 0, 0, 0, time.UTC)

	t.Run("timeout denied", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.save(t, repeating("a", time.Monday, time.Wednesday))
		h.scheduler.setDeny(domain.TriggerTimeout)

		err := h.deliver(t, "a", domain.TriggerMain)
		require.ErrorIs(t, err, domain.ErrSchedulingDenied)

		require.Equal(t, []domain.Trigger{{AlarmID: "a", Kind: domain.TriggerMain, At: wednesday}}, h.scheduler.Armed("a"))

		a := h.stored(t, "a")
		require.Equal(t, domain.StateScheduled, a.State)
		require.Equal(t, wednesday, a.NextTriggerAt)
		require.Empty(t, h.player.current())
	})

	t.Run("store down", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.save(t, repeating("a", time.Monday, time.Wednesday))
		h.repo.setFailSave(true)

		err := h.deliver(t, "a", domain.TriggerMain)
		require.ErrorIs(t, err, domain.ErrPersistence)

		require.Equal(t, []domain.Trigger{{AlarmID: "a", Kind: domain.TriggerMain, At: wednesday}}, h.scheduler.Armed("a"))

		h.repo.setFailSave(false)

		a := h.stored(t, "a")
		require.Equal(t, domain.StateScheduled, a.State)
		require.Equal(t, monday, a.NextTriggerAt)
	})

	t.Run("snooze re-entry", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newHarness(t)
		h.save(t, repeating("a", time.Monday))
		h.fire(t, "a", domain.TriggerMain)

		_, err := h.coordinator.Snooze(ctx, "a")
		require.NoError(t, err)

		h.repo.setFailSave(true)

		err = h.deliver(t, "a", domain.TriggerSnooze)
		require.ErrorIs(t, err, domain.ErrPersistence)

		snoozedUntil := monday.Add(10 * time.Minute)
		require.Equal(t, []domain.Trigger{
			{AlarmID: "a", Kind: domain.TriggerSnooze, At: snoozedUntil},
			{AlarmID: "a", Kind: domain.TriggerTimeout, At: monday.Add(15 * time.Minute)},
		}, h.scheduler.Armed("a"))

		h.repo.setFailSave(false)
		h.fire(t, "a", domain.TriggerSnooze)
		require.Equal(t, domain.StateRinging, h.stored(t, "a").State)
	})
}

// TestRingingWithoutEpisodeIsMissed verifies actions on a ringing alarm stored without
// its episode end it as missed instead of resuming it.
func TestRingingWithoutEpisodeIsMissed(t *testing.T) {
	t.Parallel()

	for name, action := range map[string]func(*Coordinator) func(context.Context, string) (Result, error){
		"snooze":   func(c *Coordinator) func(context.Context, string) (Result, error) { return c.Snooze },
		"complete": func(c *Coordinator) func(context.Context, string) (Result, error) { return c.MissionCompleted },
		"timeout":  func(c *Coordinator) func(context.Context, string) (Result, error) { return c.MissionTimedOut },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			h := newHarness(t)
			h.save(t, repeating("a", time.Monday))

			broken := h.stored(t, "a")
			broken.State = domain.StateRinging
			broken.Episode = nil
			require.NoError(t, h.repo.Save(ctx, broken))

			result, err := action(h.coordinator)(ctx, "a")
			require.NoError(t, err)
			require.True(t, result.Rejected())
			require.Equal(t, domain.RejectNotRinging, result.Rejection.Reason)

			a := h.stored(t, "a")
			require.Equal(t, domain.StateScheduled, a.State)
			require.Nil(t, a.Episode)

			armed := h.scheduler.Armed("a")
			require.Len(t, armed, 1)
			require.Equal(t, domain.TriggerMain, armed[0].Kind)
			require.Contains(t, h.presenter.kinds(), notification.KindMissed)
		})
	}
}

// TestUndoKeepsAlarmSavedAgain verifies undo never overwrites an alarm saved after deletion.
func TestUndoKeepsAlarmSavedAgain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	original := repeating("a", time.Monday)
	original.Label = "old"
	h.save(t, original)

	_, err := h.coordinator.Delete(ctx, "a")
	require.NoError(t, err)

	replacement := repeating("a", time.Friday)
	replacement.Label = "new"
	h.save(t, replacement)

	_, err = h.coordinator.Undo(ctx, "a")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.Equal(t, "new", h.stored(t, "a").Label)

	// The deleted copy stays restorable once the id is free again.
	require.NoError(t, h.repo.Delete(ctx, "a"))

	result, err := h.coordinator.Undo(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "old", result.Alarm.Label)
}

// TestReconcile covers restart recovery.
func TestReconcile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, repeating("scheduled", time.Monday))
	h.save(t, repeating("stale", time.Monday))
	h.save(t, repeating("ringing", time.Monday, time.Tuesday))
	h.save(t, repeating("expired", time.Monday))

	h.fire(t, "ringing", domain.TriggerMain)
	h.fire(t, "expired", domain.TriggerMain)

	// Simulate a daemon that was down: triggers are lost and time moved on.
	for _, id := range []string{"scheduled", "stale", "ringing", "expired"} {
		require.NoError(t, h.scheduler.CancelAll(ctx, id))
	}

	expired := h.stored(t, "expired")
	expired.Episode.TimeoutAt = h.clock.Now().Add(-time.Minute)
	require.NoError(t, h.repo.Save(ctx, expired))

	stale := h.stored(t, "stale")
	stale.NextTriggerAt = h.clock.Now().Add(-time.Hour)
	require.NoError(t, h.repo.Save(ctx, stale))

	require.NoError(t, h.coordinator.Reconcile(ctx))

	scheduled := h.scheduler.Armed("scheduled")
	require.Len(t, scheduled, 1)
	require.Equal(t, domain.TriggerMain, scheduled[0].Kind)

	ringing := h.scheduler.Armed("ringing")
	require.Len(t, ringing, 1)
	require.Equal(t, domain.TriggerTimeout, ringing[0].Kind)
	require.Equal(t, domain.StateRinging, h.stored(t, "ringing").State)

	require.Equal(t, domain.StateScheduled, h.stored(t, "expired").State)
	require.Len(t, h.scheduler.Armed("expired"), 1)

	staleAfter := h.stored(t, "stale")
	require.Equal(t, domain.StateScheduled, staleAfter.State)
	require.True(t, staleAfter.NextTriggerAt.After(h.clock.Now()))
	require.Contains(t, h.presenter.kinds(), notification.KindMissed)
}

// TestAnnounceUpcoming verifies the upcoming window.
func TestAnnounceUpcoming(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	h.save(t, repeating("a", time.Monday))
	require.NotContains(t, h.presenter.kinds(), notification.KindUpcoming)

	h.clock.Advance(10*time.Hour + 45*time.Minute)
	require.NoError(t, h.coordinator.AnnounceUpcoming(ctx))
	require.Contains(t, h.presenter.kinds(), notification.KindUpcoming)
}
