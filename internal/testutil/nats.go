// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"net"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	natsReadyTimeout = 8 * time.Second
	natsStopTimeout  = 5 * time.Second
	natsPollInterval = 100 * time.Millisecond
)

// FreePort reserves a local TCP port and returns it to the caller.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = listener.Close()
	}()

	//nolint:forcetypeassert // TCP listeners always return *net.TCPAddr.
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// StartLocalNATSServer starts a nats-server with JetStream for the test.
// The test is skipped when the nats-server binary is not installed.
func StartLocalNATSServer(tb testing.TB) (string, func()) {
	tb.Helper()

	if _, err := exec.LookPath("nats-server"); err != nil {
		tb.Skipf("nats-server is required for this test: %v", err)
	}

	port, err := FreePort()
	if err != nil {
		tb.Fatalf("free port: %v", err)
	}

	//nolint:gosec // Test helper launches a fixed binary.
	cmd := exec.Command("nats-server", "-js", "-p", strconv.Itoa(port), "-sd", tb.TempDir())
	if err := cmd.Start(); err != nil {
		tb.Skipf("nats-server failed to start: %v", err)
	}

	url := "nats://127.0.0.1:" + strconv.Itoa(port)

	var stopOnce sync.Once

	stop := func() {
		stopOnce.Do(func() {
			_ = cmd.Process.Signal(syscall.SIGTERM)

			done := make(chan struct{})

			go func() {
				_, _ = cmd.Process.Wait()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(natsStopTimeout):
				_ = cmd.Process.Kill()
				<-done
			}
		})
	}

	if !waitForNATS(url, natsReadyTimeout) {
		stop()
		tb.Fatalf("nats did not become ready at %s", url)
	}

	return url, stop
}

func waitForNATS(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		nc, err := nats.Connect(url)
		if err == nil {
			nc.Close()

			return true
		}

		time.Sleep(natsPollInterval)
	}

	return false
}
