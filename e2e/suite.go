package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// lockedBuffer is a thread-safe bytes.Buffer for capturing process output
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer with mutex protection
func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// String returns the buffer contents with mutex protection
func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// Runner manages a pidwatch process for e2e tests
type Runner struct {
	t      *testing.T
	bin    string
	port   int
	cmd    *exec.Cmd
	stdout *lockedBuffer
	stderr *lockedBuffer
	done   chan error
}

// NewRunner creates a runner listening on a free local port, skipping the test when the binary is missing
func NewRunner(t *testing.T) *Runner {
	t.Helper()

	bin := os.Getenv("PIDWATCH_BIN")
	if bin == "" {
		bin = "pidwatch"
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		t.Skipf("pidwatch binary not found (%s), set PIDWATCH_BIN to run e2e tests", bin)
	}

	return &Runner{
		t:      t,
		bin:    path,
		port:   freePort(t),
		stdout: &lockedBuffer{},
		stderr: &lockedBuffer{},
		done:   make(chan error, 1),
	}
}

// Start launches pidwatch observing pid with extra arguments appended
func (r *Runner) Start(pid int, extra ...string) error {
	args := []string{
		"--pid", strconv.Itoa(pid),
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(r.port),
	}
	args = append(args, extra...)

	return r.StartArgs(args...)
}

// StartArgs launches pidwatch with raw arguments
func (r *Runner) StartArgs(args ...string) error {
	r.cmd = exec.Command(r.bin, args...)
	r.cmd.Dir = r.t.TempDir()
	r.cmd.Stdout = r.stdout
	r.cmd.Stderr = r.stderr

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start pidwatch: %w", err)
	}

	go func() {
		r.done <- r.cmd.Wait()
	}()

	return nil
}

// Stop sends SIGTERM and waits for graceful shutdown
func (r *Runner) Stop() error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil && !strings.Contains(err.Error(), "process already finished") {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	return r.Wait(10 * time.Second)
}

// Wait blocks until the process exits, killing it on timeout
func (r *Runner) Wait(timeout time.Duration) error {
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		_ = r.cmd.Process.Kill()
		<-r.done

		return fmt.Errorf("process did not exit in %s, killed", timeout)
	}
}

// WaitForLog blocks until pattern appears in stdout or timeout
func (r *Runner) WaitForLog(pattern string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for log pattern %q\nOutput:\n%s", pattern, r.Output())
		case <-ticker.C:
			if strings.Contains(r.Output(), pattern) {
				return nil
			}
		}
	}
}

// WaitForServing waits until the metrics endpoint is bound
func (r *Runner) WaitForServing(timeout time.Duration) error {
	return r.WaitForLog("Serving metrics", timeout)
}

// Scrape fetches the metrics endpoint once
func (r *Runner) Scrape() (int, string, error) {
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", r.port))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}

	return resp.StatusCode, string(body), nil
}

// Output returns current stdout content
func (r *Runner) Output() string {
	return r.stdout.String()
}

// Stderr returns current stderr content
func (r *Runner) Stderr() string {
	return r.stderr.String()
}

// ExitCode returns process exit code (after Stop or Wait)
func (r *Runner) ExitCode() int {
	if r.cmd == nil || r.cmd.ProcessState == nil {
		return -1
	}

	return r.cmd.ProcessState.ExitCode()
}

// startTarget launches a long sleeping process to observe
func startTarget(t *testing.T) *exec.Cmd {
	t.Helper()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start target: %v", err)
	}

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	return cmd
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}
