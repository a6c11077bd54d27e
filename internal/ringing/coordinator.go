package ringing

import (
	"context"
	"sync"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// closedSurface is handed to alarms that do not hold the resource.
//
//nolint:gochecknoglobals // Shared read-only closed channel.
var closedSurface = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}()

// Lease describes what the holder rings with.
type Lease struct {
	// AlarmID identifies the holder.
	AlarmID string
	// Sound references the audio to loop.
	Sound string
	// Volume is the playback volume in percent.
	Volume int
	// Vibrate enables vibration.
	Vibrate bool
}

// Coordinator is the mutex-guarded holder of the ringing resource.
type Coordinator struct {
	// player, vibrator and keepAlive are the shared devices.
	player    Player
	vibrator  Vibrator
	keepAlive KeepAlive
	// onChange is told whether the resource is held after every change.
	onChange func(held bool)

	// mu serializes acquire and release across alarms.
	mu sync.Mutex
	// holder is the current lease, nil when free.
	holder *Lease
	// surfaces are close signals for presentation surfaces bound to an alarm.
	surfaces map[string]chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithVibrator sets the vibration device.
func WithVibrator(v Vibrator) Option {
	return func(c *Coordinator) {
		c.vibrator = v
	}
}

// WithKeepAlive sets the keep-alive lease.
func WithKeepAlive(k KeepAlive) Option {
	return func(c *Coordinator) {
		c.keepAlive = k
	}
}

// WithOnChange registers a callback invoked with the held state after every change.
func WithOnChange(fn func(held bool)) Option {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// NewCoordinator creates a free coordinator around the player.
func NewCoordinator(player Player, opts ...Option) *Coordinator {
	c := &Coordinator{
		player:    player,
		vibrator:  LogVibrator{},
		keepAlive: NopKeepAlive{},
		onChange:  func(bool) {},
		surfaces:  make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Acquire makes lease.AlarmID the holder. A different holder is force-released first.
// Re-acquiring by the current holder restarts playback with the new lease.
func (c *Coordinator) Acquire(ctx context.Context, lease Lease) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holder != nil {
		if c.holder.AlarmID != lease.AlarmID {
			logger.InfoKV(ctx, "Ringing resource taken over", "previous", c.holder.AlarmID, "alarm_id", lease.AlarmID)
		}

		c.releaseLocked(c.holder.AlarmID, c.holder.AlarmID != lease.AlarmID)
	}

	held := lease
	c.holder = &held

	c.keepAlive.Hold(ctx, lease.AlarmID)

	if err := c.player.Play(ctx, lease.Sound, lease.Volume); err != nil {
		logger.ErrorKV(ctx, "Failed to start alarm sound", "alarm_id", lease.AlarmID, "sound", lease.Sound, "error", err)
	}

	if lease.Vibrate {
		c.vibrator.Start(ctx)
	}

	c.onChange(true)
}

// Release frees the resource and closes the alarm's surfaces. It reports false and
// does nothing when alarmID is not the holder.
func (c *Coordinator) Release(ctx context.Context, alarmID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holder == nil || c.holder.AlarmID != alarmID {
		return false
	}

	c.releaseLocked(alarmID, true)
	c.onChange(false)

	logger.DebugKV(ctx, "Ringing resource released", "alarm_id", alarmID)

	return true
}

// Holder returns the id of the current holder and whether the resource is held.
func (c *Coordinator) Holder() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holder == nil {
		return "", false
	}

	return c.holder.AlarmID, true
}

// Surface returns a channel closed when the alarm loses the resource.
// An alarm that does not hold the resource gets an already closed channel.
func (c *Coordinator) Surface(alarmID string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holder == nil || c.holder.AlarmID != alarmID {
		return closedSurface
	}

	ch, ok := c.surfaces[alarmID]
	if !ok {
		ch = make(chan struct{})
		c.surfaces[alarmID] = ch
	}

	return ch
}

func (c *Coordinator) releaseLocked(alarmID string, closeSurface bool) {
	c.player.Stop()
	c.vibrator.Stop()
	c.keepAlive.Let(alarmID)
	c.holder = nil

	if !closeSurface {
		return
	}

	if ch, ok := c.surfaces[alarmID]; ok {
		close(ch)
		delete(c.surfaces, alarmID)
	}
}
