package ringing

import (
	"context"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Player plays the alarm sound in a loop until stopped.
type Player interface {
	Play(ctx context.Context, sound string, volume int) error
	Stop()
}

// Vibrator drives the vibration motor.
type Vibrator interface {
	Start(ctx context.Context)
	Stop()
}

// KeepAlive keeps the execution context alive while an alarm rings.
type KeepAlive interface {
	Hold(ctx context.Context, alarmID string)
	Let(alarmID string)
}

// LogPlayer only logs playback. Used when audio output is disabled.
type LogPlayer struct{}

// Play logs the requested sound.
func (LogPlayer) Play(ctx context.Context, sound string, volume int) error {
	logger.InfoKV(ctx, "Playing alarm sound", "sound", sound, "volume", volume)

	return nil
}

// Stop does nothing.
func (LogPlayer) Stop() {}

// LogVibrator logs vibration; the daemon host has no motor.
type LogVibrator struct{}

// Start logs the vibration start.
func (LogVibrator) Start(ctx context.Context) {
	logger.Info(ctx, "Vibration started")
}

// Stop does nothing.
func (LogVibrator) Stop() {}

// NopKeepAlive holds nothing.
type NopKeepAlive struct{}

// Hold does nothing.
func (NopKeepAlive) Hold(context.Context, string) {}

// Let does nothing.
func (NopKeepAlive) Let(string) {}
