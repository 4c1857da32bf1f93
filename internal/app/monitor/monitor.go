//go:generate mockgen -source=monitor.go -destination=monitor_mock.go -package=monitor
package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shirou/gopsutil/v4/process"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/config/logger"
)

// Stats contains process resource statistics
type Stats struct {
	CPU float64 // percent, 100 per fully used core
}

// Monitor provides process resource monitoring
type Monitor interface {
	GetStats(ctx context.Context, pid int) (Stats, error)
}

type monitor struct {
	mu    sync.Mutex
	procs map[int32]*process.Process
	log   logger.Logger
}

// NewMonitor creates a new Monitor instance
func NewMonitor(log logger.Logger) Monitor {
	return &monitor{
		procs: make(map[int32]*process.Process),
		log:   log.WithComponent("MONITOR"),
	}
}

// GetStats reports CPU usage since the previous call for the same pid; the first call primes it and reports 0
func (m *monitor) GetStats(ctx context.Context, pid int) (Stats, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return Stats{}, fmt.Errorf("%w: %d", errors.ErrInvalidPID, pid)
	}

	id := int32(pid) // #nosec G115 -- PID range checked above

	m.mu.Lock()
	defer m.mu.Unlock()

	proc, err := m.lookup(ctx, id)
	if err != nil {
		return Stats{}, err
	}

	cpuPercent, err := proc.PercentWithContext(ctx, 0)
	if err != nil {
		return Stats{}, m.classify(ctx, id, err)
	}

	return Stats{CPU: cpuPercent}, nil
}

// lookup returns the cached handle for pid, dropping it when the pid now belongs to another process
func (m *monitor) lookup(ctx context.Context, pid int32) (*process.Process, error) {
	proc, ok := m.procs[pid]
	if ok {
		running, err := proc.IsRunningWithContext(ctx)
		if err != nil {
			return nil, m.classify(ctx, pid, err)
		}

		if running {
			return proc, nil
		}

		delete(m.procs, pid)
		m.log.Debug().Int("pid", int(pid)).Msg("Cached process handle is no longer valid")

		return nil, fmt.Errorf("%w: %d", errors.ErrProcessNotFound, pid)
	}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, m.classify(ctx, pid, err)
	}

	m.procs[pid] = proc

	return proc, nil
}

// classify maps gopsutil failures onto ErrProcessNotFound when the pid is gone
func (m *monitor) classify(ctx context.Context, pid int32, err error) error {
	if errors.Is(err, process.ErrorProcessNotRunning) {
		delete(m.procs, pid)
		return fmt.Errorf("%w: %d", errors.ErrProcessNotFound, pid)
	}

	exists, existsErr := process.PidExistsWithContext(ctx, pid)
	if existsErr == nil && !exists {
		delete(m.procs, pid)
		return fmt.Errorf("%w: %d", errors.ErrProcessNotFound, pid)
	}

	return fmt.Errorf("%w %d: %w", errors.ErrFailedToInspect, pid, err)
}
