// Package instance keeps a single daemon per machine.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lister returns the running processes.
type Lister func() ([]ps.Process, error)

// Guard detects other processes running the same executable.
type Guard struct {
	// executable is the process name to look for.
	executable string
	// pid is this process id, never counted as a duplicate.
	pid int
	// list enumerates processes.
	list Lister
}

// NewGuard builds a guard for the current executable.
func NewGuard() (*Guard, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return newGuard(filepath.Base(path), os.Getpid(), ps.Processes), nil
}

func newGuard(executable string, pid int, list Lister) *Guard {
	return &Guard{
		executable: executable,
		pid:        pid,
		list:       list,
	}
}

// Check returns ErrAlreadyRunning with the pid of the first duplicate found.
func (g *Guard) Check() error {
	processes, err := g.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processes {
		if process.Pid() == g.pid || process.Executable() != g.executable {
			continue
		}

		return fmt.Errorf("%s (pid %d): %w", g.executable, process.Pid(), ErrAlreadyRunning)
	}

	return nil
}
