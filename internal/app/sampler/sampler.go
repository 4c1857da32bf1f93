//go:generate mockgen -source=sampler.go -destination=sampler_mock.go -package=sampler
package sampler

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/app/metrics"
	"pidwatch/internal/app/monitor"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

// FSM states
const (
	Idle     = "idle"
	Sampling = "sampling"
	Stale    = "stale"
	Failed   = "failed"
	Stopped  = "stopped"
)

// FSM events
const (
	Start = "start"
	Lose  = "lose"
	Fail  = "fail"
	Stop  = "stop"
)

// Sampler keeps the CPU gauge current with the target process
type Sampler interface {
	Run(ctx context.Context) error
	State() string
}

type sampler struct {
	pid      int
	policy   string
	interval time.Duration
	monitor  monitor.Monitor
	gauge    metrics.Gauge
	fsm      *fsm.FSM
	log      logger.Logger
}

// NewSampler creates a sampler for the configured target
func NewSampler(cfg *config.Config, monitor monitor.Monitor, gauge metrics.Gauge, log logger.Logger) Sampler {
	return newSampler(cfg.Target.PID, cfg.Sampler.Policy, config.SampleInterval, monitor, gauge, log.WithComponent("SAMPLER"))
}

func newSampler(pid int, policy string, interval time.Duration, monitor monitor.Monitor, gauge metrics.Gauge, log logger.Logger) *sampler {
	return &sampler{
		pid:      pid,
		policy:   policy,
		interval: interval,
		monitor:  monitor,
		gauge:    gauge,
		fsm:      newSamplerFSM(log),
		log:      log,
	}
}

// newSamplerFSM creates the state machine tracking the sampler lifecycle
func newSamplerFSM(log logger.Logger) *fsm.FSM {
	return fsm.NewFSM(
		Idle,
		fsm.Events{
			{Name: Start, Src: []string{Idle}, Dst: Sampling},
			{Name: Lose, Src: []string{Sampling}, Dst: Stale},
			{Name: Fail, Src: []string{Idle, Sampling}, Dst: Failed},
			{Name: Stop, Src: []string{Idle, Sampling}, Dst: Stopped},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				log.Debug().Msgf("STATE %s → %s (trigger: %s)", e.Src, e.Dst, e.Event)
			},
		},
	)
}

// State returns the current lifecycle state
func (s *sampler) State() string {
	return s.fsm.Current()
}

// Run samples immediately and then on every tick until the context ends or the target is lost.
// Losing the target is returned as an error unless the stale policy is configured.
func (s *sampler) Run(ctx context.Context) error {
	s.transition(Start)
	s.log.Info().Int("pid", s.pid).Dur("interval", s.interval).Msgf("Sampling process %d", s.pid)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		err := s.sample(ctx)

		switch {
		case err == nil:
		case ctx.Err() != nil:
			s.transition(Stop)
			return nil
		case errors.Is(err, errors.ErrProcessNotFound) && s.policy == config.PolicyStale:
			s.log.Warn().Err(err).Float64("cpu", s.gauge.Value()).Msgf("Process %d is gone, serving last value", s.pid)
			s.transition(Lose)

			return nil
		default:
			s.transition(Fail)
			return err
		}

		select {
		case <-ctx.Done():
			s.transition(Stop)
			return nil
		case <-ticker.C:
		}
	}
}

// sample takes one reading and publishes it to the gauge
func (s *sampler) sample(ctx context.Context) error {
	stats, err := s.monitor.GetStats(ctx, s.pid)
	if err != nil {
		return err
	}

	s.gauge.Set(stats.CPU)
	s.log.Debug().Float64("cpu", stats.CPU).Msg("Sample published")

	return nil
}

func (s *sampler) transition(event string) {
	if err := s.fsm.Event(context.Background(), event); err != nil {
		s.log.Debug().Err(err).Msgf("Ignoring sampler event '%s'", event)
	}
}
