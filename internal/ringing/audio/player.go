package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/oshokin/alarm-clock/internal/logger"
)

const pollInterval = 10 * time.Millisecond

// Player loops WAV files through a shared oto context.
// The device is opened on first use with the format of the first sound.
type Player struct {
	// dir resolves relative sound references.
	dir string

	// ctxOnce guards device initialisation.
	ctxOnce sync.Once
	otoCtx  *oto.Context
	ctxErr  error
	format  wavFormat

	// mu protects stop.
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPlayer creates a player resolving sounds relative to dir.
func NewPlayer(dir string) *Player {
	return &Player{dir: dir}
}

// Play starts looping the sound and returns at once. A running loop is stopped first.
func (p *Player) Play(ctx context.Context, sound string, volume int) error {
	p.Stop()

	path := sound
	if !filepath.IsAbs(path) && p.dir != "" {
		path = filepath.Join(p.dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sound %s: %w", path, err)
	}

	format, samples, err := parseWAV(data)
	if err != nil {
		return fmt.Errorf("parse sound %s: %w", path, err)
	}

	otoCtx, err := p.device(format)
	if err != nil {
		return err
	}

	if format.SampleRate != p.format.SampleRate || format.Channels != p.format.Channels {
		logger.WarnKV(ctx, "Sound format differs from the audio device",
			"sound", path,
			"sample_rate", format.SampleRate,
			"device_sample_rate", p.format.SampleRate)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	p.mu.Lock()
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go p.loop(otoCtx, samples, float64(volume)/100, stop, done)

	return nil
}

// Stop ends playback and waits for the loop to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

func (p *Player) device(format wavFormat) (*oto.Context, error) {
	p.ctxOnce.Do(func() {
		otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			p.ctxErr = fmt.Errorf("open audio device: %w", err)

			return
		}

		<-ready

		p.otoCtx = otoCtx
		p.format = format
	})

	return p.otoCtx, p.ctxErr
}

func (p *Player) loop(otoCtx *oto.Context, samples []byte, volume float64, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		player := otoCtx.NewPlayer(bytes.NewReader(samples))
		player.SetVolume(volume)
		player.Play()

		for player.IsPlaying() {
			select {
			case <-stop:
				player.Pause()
				_ = player.Close()

				return
			case <-ticker.C:
			}
		}

		_ = player.Close()

		select {
		case <-stop:
			return
		default:
		}
	}
}
