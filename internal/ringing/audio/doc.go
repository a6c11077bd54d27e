// Package audio loops WAV alarm sounds through the system audio device.
package audio
