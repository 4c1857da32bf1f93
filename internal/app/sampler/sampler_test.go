package sampler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/app/metrics"
	"pidwatch/internal/app/monitor"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

const testInterval = 5 * time.Millisecond

func newQuietLogger(ctrl *gomock.Controller) *logger.MockLogger {
	mockLogger := logger.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithComponent(gomock.Any()).Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().Debug().Return(&logger.NoopEvent{}).AnyTimes()
	mockLogger.EXPECT().Info().Return(&logger.NoopEvent{}).AnyTimes()
	mockLogger.EXPECT().Warn().Return(&logger.NoopEvent{}).AnyTimes()
	mockLogger.EXPECT().Error().Return(&logger.NoopEvent{}).AnyTimes()

	return mockLogger
}

func newGauge(t *testing.T) metrics.Gauge {
	t.Helper()

	g, err := metrics.NewCPUGauge(metrics.NewRegistry())
	require.NoError(t, err)

	return g
}

func notFound(pid int) error {
	return fmt.Errorf("%w: %d", errors.ErrProcessNotFound, pid)
}

func Test_NewSampler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := config.DefaultConfig()
	cfg.Target.PID = 42

	mockMonitor := monitor.NewMockMonitor(ctrl)
	mockGauge := metrics.NewMockGauge(ctrl)
	mockLogger := logger.NewMockLogger(ctrl)
	componentLogger := logger.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithComponent("SAMPLER").Return(componentLogger)

	s := NewSampler(cfg, mockMonitor, mockGauge, mockLogger)

	impl, ok := s.(*sampler)
	require.True(t, ok)
	assert.Equal(t, 42, impl.pid)
	assert.Equal(t, config.PolicyExit, impl.policy)
	assert.Equal(t, config.SampleInterval, impl.interval)
	assert.Equal(t, componentLogger, impl.log)
	assert.Equal(t, Idle, s.State())
}

func Test_Run_PublishesEachTickThenFailsWhenTargetVanishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gauge := newGauge(t)
	mockMonitor := monitor.NewMockMonitor(ctrl)

	gomock.InOrder(
		mockMonitor.EXPECT().GetStats(gomock.Any(), 42).Return(monitor.Stats{CPU: 12.3}, nil),
		mockMonitor.EXPECT().GetStats(gomock.Any(), 42).DoAndReturn(func(ctx context.Context, pid int) (monitor.Stats, error) {
			assert.Equal(t, 12.3, gauge.Value())
			return monitor.Stats{CPU: 45.0}, nil
		}),
		mockMonitor.EXPECT().GetStats(gomock.Any(), 42).DoAndReturn(func(ctx context.Context, pid int) (monitor.Stats, error) {
			assert.Equal(t, 45.0, gauge.Value())
			return monitor.Stats{}, notFound(pid)
		}),
	)

	s := newSampler(42, config.PolicyExit, testInterval, mockMonitor, gauge, newQuietLogger(ctrl))

	err := s.Run(context.Background())

	assert.ErrorIs(t, err, errors.ErrProcessNotFound)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 45.0, gauge.Value())
}

func Test_Run_StalePolicyKeepsLastValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gauge := newGauge(t)
	mockMonitor := monitor.NewMockMonitor(ctrl)

	gomock.InOrder(
		mockMonitor.EXPECT().GetStats(gomock.Any(), 7).Return(monitor.Stats{CPU: 80.5}, nil),
		mockMonitor.EXPECT().GetStats(gomock.Any(), 7).Return(monitor.Stats{}, notFound(7)),
	)

	s := newSampler(7, config.PolicyStale, testInterval, mockMonitor, gauge, newQuietLogger(ctrl))

	err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, Stale, s.State())
	assert.Equal(t, 80.5, gauge.Value())
}

func Test_Run_InspectorFailureIsFatalUnderEveryPolicy(t *testing.T) {
	for _, policy := range []string{config.PolicyExit, config.PolicyStale} {
		t.Run(policy, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			inspectErr := fmt.Errorf("%w 7: permission denied", errors.ErrFailedToInspect)

			mockMonitor := monitor.NewMockMonitor(ctrl)
			mockMonitor.EXPECT().GetStats(gomock.Any(), 7).Return(monitor.Stats{}, inspectErr)

			mockGauge := metrics.NewMockGauge(ctrl)

			s := newSampler(7, policy, testInterval, mockMonitor, mockGauge, newQuietLogger(ctrl))

			err := s.Run(context.Background())

			assert.ErrorIs(t, err, errors.ErrFailedToInspect)
			assert.Equal(t, Failed, s.State())
		})
	}
}

func Test_Run_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	mockMonitor := monitor.NewMockMonitor(ctrl)
	mockMonitor.EXPECT().GetStats(gomock.Any(), 1).DoAndReturn(func(ctx context.Context, pid int) (monitor.Stats, error) {
		if calls.Add(1) == 3 {
			cancel()
		}

		return monitor.Stats{CPU: 1.5}, nil
	}).MinTimes(3)

	gauge := newGauge(t)
	s := newSampler(1, config.PolicyExit, testInterval, mockMonitor, gauge, newQuietLogger(ctrl))

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not stop after cancel")
	}

	assert.Equal(t, Stopped, s.State())
	assert.Equal(t, 1.5, gauge.Value())
}

func Test_Run_CancelledDuringInspection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	mockMonitor := monitor.NewMockMonitor(ctrl)
	mockMonitor.EXPECT().GetStats(gomock.Any(), 1).DoAndReturn(func(ctx context.Context, pid int) (monitor.Stats, error) {
		cancel()
		return monitor.Stats{}, ctx.Err()
	})

	mockGauge := metrics.NewMockGauge(ctrl)

	s := newSampler(1, config.PolicyExit, testInterval, mockMonitor, mockGauge, newQuietLogger(ctrl))

	err := s.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, Stopped, s.State())
}

func Test_Run_FixedCadence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	interval := 20 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 10*interval+interval/2)
	defer cancel()

	var calls atomic.Int32

	mockMonitor := monitor.NewMockMonitor(ctrl)
	mockMonitor.EXPECT().GetStats(gomock.Any(), 9).DoAndReturn(func(ctx context.Context, pid int) (monitor.Stats, error) {
		calls.Add(1)
		return monitor.Stats{CPU: 3}, nil
	}).AnyTimes()

	s := newSampler(9, config.PolicyExit, interval, mockMonitor, newGauge(t), newQuietLogger(ctrl))

	require.NoError(t, s.Run(ctx))

	assert.GreaterOrEqual(t, calls.Load(), int32(5))
	assert.LessOrEqual(t, calls.Load(), int32(12))
}

func Test_transition_IgnoresInvalidEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := newSampler(1, config.PolicyExit, testInterval, monitor.NewMockMonitor(ctrl), metrics.NewMockGauge(ctrl), newQuietLogger(ctrl))

	s.transition(Lose)
	assert.Equal(t, Idle, s.State())

	s.transition(Start)
	assert.Equal(t, Sampling, s.State())

	s.transition(Start)
	assert.Equal(t, Sampling, s.State())

	s.transition(Lose)
	assert.Equal(t, Stale, s.State())

	s.transition(Stop)
	assert.Equal(t, Stale, s.State())
}
