package notification

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedOS indicates the current OS has no desktop notification tool.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Runner starts an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// DesktopPoster shows notifications with the notification tool built into the OS:
//   - Linux:  notify-send
//   - macOS:  osascript
//
// The commands are started asynchronously; the desktop takes over the rest.
type DesktopPoster struct {
	goos string
	run  Runner
}

// NewDesktopPoster returns a poster for the running OS.
func NewDesktopPoster() (*DesktopPoster, error) {
	return newDesktopPoster(runtime.GOOS, startCommand)
}

func newDesktopPoster(goos string, run Runner) (*DesktopPoster, error) {
	goos = strings.ToLower(goos)

	switch goos {
	case "linux", "darwin":
		return &DesktopPoster{goos: goos, run: run}, nil
	default:
		return nil, fmt.Errorf("desktop notifications on %s: %w", goos, ErrUnsupportedOS)
	}
}

// Post shows the notification. Ringing notifications use critical urgency.
func (p *DesktopPoster) Post(ctx context.Context, n Notification) error {
	name, args := p.command(n)

	if err := p.run(ctx, name, args...); err != nil {
		return fmt.Errorf("show desktop notification for alarm %s: %w", n.ID, err)
	}

	return nil
}

// Cancel is a no-op: desktop notifications expire on their own.
func (p *DesktopPoster) Cancel(context.Context, string) error {
	return nil
}

func (p *DesktopPoster) command(n Notification) (string, []string) {
	if p.goos == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", n.Body, n.Title)

		return "osascript", []string{"-e", script}
	}

	urgency := "normal"
	if n.Priority == PriorityMax {
		urgency = "critical"
	}

	return "notify-send", []string{
		"--app-name=alarm-clock",
		"--urgency=" + urgency,
		"--category=" + n.Channel,
		n.Title,
		n.Body,
	}
}

func startCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	// Reap the process without blocking the caller.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
