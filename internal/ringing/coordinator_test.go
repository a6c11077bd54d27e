package ringing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDevice records the device calls.
type fakeDevice struct {
	mu       sync.Mutex
	playing  string
	vibrate  bool
	held     string
	playLog  []string
	stopCnt  int
	failPlay error
}

func (f *fakeDevice) Play(_ context.Context, sound string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playLog = append(f.playLog, sound)
	if f.failPlay != nil {
		return f.failPlay
	}

	f.playing = sound

	return nil
}

func (f *fakeDevice) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playing = ""
	f.vibrate = false
	f.stopCnt++
}

func (f *fakeDevice) Start(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.vibrate = true
}

func (f *fakeDevice) Hold(_ context.Context, alarmID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.held = alarmID
}

func (f *fakeDevice) Let(alarmID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.held == alarmID {
		f.held = ""
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// TestTakeover verifies that a new alarm force-releases the previous holder.
func TestTakeover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	device := &fakeDevice{}

	var gauge []bool

	c := NewCoordinator(device, WithVibrator(device), WithKeepAlive(device), WithOnChange(func(held bool) {
		gauge = append(gauge, held)
	}))

	c.Acquire(ctx, Lease{AlarmID: "A", Sound: "a.wav", Vibrate: true})

	surfaceA := c.Surface("A")
	require.False(t, isClosed(surfaceA))

	holder, ok := c.Holder()
	require.True(t, ok)
	require.Equal(t, "A", holder)
	require.Equal(t, "a.wav", device.playing)
	require.True(t, device.vibrate)
	require.Equal(t, "A", device.held)

	c.Acquire(ctx, Lease{AlarmID: "B", Sound: "b.wav"})

	holder, ok = c.Holder()
	require.True(t, ok)
	require.Equal(t, "B", holder)
	require.Equal(t, "b.wav", device.playing)
	require.False(t, device.vibrate)
	require.Equal(t, "B", device.held)
	require.True(t, isClosed(surfaceA))

	// A is no longer the holder.
	require.False(t, c.Release(ctx, "A"))
	require.Equal(t, "b.wav", device.playing)

	require.True(t, c.Release(ctx, "B"))

	_, ok = c.Holder()
	require.False(t, ok)
	require.Empty(t, device.playing)
	require.Equal(t, []bool{true, true, false}, gauge)
}

// TestReacquireKeepsSurface verifies that the holder can restart without closing its surface.
func TestReacquireKeepsSurface(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	device := &fakeDevice{}
	c := NewCoordinator(device, WithVibrator(device))

	c.Acquire(ctx, Lease{AlarmID: "A", Sound: "one.wav"})
	surface := c.Surface("A")

	c.Acquire(ctx, Lease{AlarmID: "A", Sound: "two.wav"})
	require.False(t, isClosed(surface))
	require.Equal(t, "two.wav", device.playing)

	require.True(t, c.Release(ctx, "A"))
	require.True(t, isClosed(surface))

	// Without the resource the surface is closed from the start.
	require.True(t, isClosed(c.Surface("A")))
}

// TestSurfaceOnlyForHolder verifies surfaces are not kept for alarms that never held the resource.
func TestSurfaceOnlyForHolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewCoordinator(LogPlayer{})

	for _, id := range []string{"A", "B", "C"} {
		require.True(t, isClosed(c.Surface(id)))
	}

	c.Acquire(ctx, Lease{AlarmID: "A"})
	require.False(t, isClosed(c.Surface("A")))
	require.True(t, isClosed(c.Surface("B")))

	require.False(t, c.Release(ctx, "B"))
	c.Acquire(ctx, Lease{AlarmID: "C"})
	require.False(t, isClosed(c.Surface("C")))

	require.True(t, c.Release(ctx, "C"))

	c.mu.Lock()
	defer c.mu.Unlock()

	require.Empty(t, c.surfaces)
}

// TestPlaybackFailureKeepsLease verifies a broken sound does not block ringing.
func TestPlaybackFailureKeepsLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	device := &fakeDevice{failPlay: context.DeadlineExceeded}
	c := NewCoordinator(device)

	c.Acquire(ctx, Lease{AlarmID: "A", Sound: "broken.wav"})

	holder, ok := c.Holder()
	require.True(t, ok)
	require.Equal(t, "A", holder)
	require.Equal(t, []string{"broken.wav"}, device.playLog)
}

// TestConcurrentAcquire verifies a single holder under contention.
func TestConcurrentAcquire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewCoordinator(LogPlayer{})

	var wg sync.WaitGroup

	for _, id := range []string{"A", "B", "C", "D"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			c.Acquire(ctx, Lease{AlarmID: id})
		}()
	}

	wg.Wait()

	holder, ok := c.Holder()
	require.True(t, ok)
	require.Contains(t, []string{"A", "B", "C", "D"}, holder)
}
