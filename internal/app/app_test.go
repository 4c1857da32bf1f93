package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	apperrors "pidwatch/internal/app/errors"
	"pidwatch/internal/app/reporting"
	"pidwatch/internal/app/sampler"
	"pidwatch/internal/app/server"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

// mockLifecycle implements fx.Lifecycle for testing
type mockLifecycle struct {
	onAppend func(fx.Hook)
}

func (m *mockLifecycle) Append(hook fx.Hook) {
	if m.onAppend != nil {
		m.onAppend(hook)
	}
}

// mockShutdowner implements fx.Shutdowner for testing
type mockShutdowner struct {
	mu     sync.Mutex
	called chan struct{}
	opts   []fx.ShutdownOption
}

func newMockShutdowner() *mockShutdowner {
	return &mockShutdowner{called: make(chan struct{}, 1)}
}

func (m *mockShutdowner) Shutdown(opts ...fx.ShutdownOption) error {
	m.mu.Lock()
	m.opts = opts
	m.mu.Unlock()

	m.called <- struct{}{}

	return nil
}

type testDeps struct {
	sampler    *sampler.MockSampler
	server     *server.MockServer
	reporter   *reporting.MockReporter
	shutdowner *mockShutdowner
	logger     *logger.MockLogger
}

func newTestDeps(ctrl *gomock.Controller) testDeps {
	mockLogger := logger.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithComponent("APP").Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().Error().Return(&logger.NoopEvent{}).AnyTimes()

	return testDeps{
		sampler:    sampler.NewMockSampler(ctrl),
		server:     server.NewMockServer(ctrl),
		reporter:   reporting.NewMockReporter(ctrl),
		shutdowner: newMockShutdowner(),
		logger:     mockLogger,
	}
}

func (d testDeps) app() *App {
	return NewApp(d.sampler, d.server, d.reporter, d.shutdowner, d.logger)
}

func waitDone(t *testing.T, app *App) {
	t.Helper()

	select {
	case <-app.done:
	case <-time.After(5 * time.Second):
		t.Fatal("sampler goroutine did not finish")
	}
}

func Test_NewApp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)
	application := d.app()

	assert.NotNil(t, application)
	assert.Equal(t, d.sampler, application.sampler)
	assert.Equal(t, d.server, application.server)
	assert.Equal(t, d.reporter, application.reporter)
	assert.Equal(t, d.logger, application.log)
	assert.NotNil(t, application.done)
}

func Test_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	application := newTestDeps(ctrl).app()

	var registered bool
	var capturedHook fx.Hook

	testLifecycle := &mockLifecycle{
		onAppend: func(hook fx.Hook) {
			registered = true
			capturedHook = hook
		},
	}

	Register(testLifecycle, application)

	assert.True(t, registered)
	assert.NotNil(t, capturedHook.OnStart)
	assert.NotNil(t, capturedHook.OnStop)
}

func Test_Start_BindFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bindErr := fmt.Errorf("%w 0.0.0.0:5054: address already in use", apperrors.ErrFailedToBind)

	mockEvent := logger.NewMockEvent(ctrl)
	mockEvent.EXPECT().Err(bindErr).Return(mockEvent)
	mockEvent.EXPECT().Msg("Failed to start metrics endpoint")

	mockLogger := logger.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithComponent("APP").Return(mockLogger)
	mockLogger.EXPECT().Error().Return(mockEvent)

	d := newTestDeps(ctrl)
	d.logger = mockLogger

	d.server.EXPECT().Start(gomock.Any()).Return(bindErr)
	gomock.InOrder(
		d.reporter.EXPECT().Capture(bindErr),
		d.reporter.EXPECT().Flush(),
	)

	application := d.app()

	err := application.Start(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrFailedToBind)
	assert.Nil(t, application.cancel)
}

func Test_Start_SamplerFailureShutsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)
	lost := fmt.Errorf("%w: 42", apperrors.ErrProcessNotFound)

	d.server.EXPECT().Start(gomock.Any()).Return(nil)
	d.sampler.EXPECT().Run(gomock.Any()).Return(lost)
	d.reporter.EXPECT().Capture(lost)

	application := d.app()

	require.NoError(t, application.Start(context.Background()))

	select {
	case <-d.shutdowner.called:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown was not requested")
	}

	waitDone(t, application)

	d.shutdowner.mu.Lock()
	assert.Len(t, d.shutdowner.opts, 1)
	d.shutdowner.mu.Unlock()
}

func Test_Start_SamplerStaleKeepsServing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)

	d.server.EXPECT().Start(gomock.Any()).Return(nil)
	d.sampler.EXPECT().Run(gomock.Any()).Return(nil)

	application := d.app()

	require.NoError(t, application.Start(context.Background()))
	waitDone(t, application)

	select {
	case <-d.shutdowner.called:
		t.Fatal("shutdown must not be requested when the sampler returns cleanly")
	default:
	}
}

func Test_Stop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)

	d.server.EXPECT().Start(gomock.Any()).Return(nil)
	d.sampler.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	gomock.InOrder(
		d.server.EXPECT().Stop(gomock.Any()).Return(nil),
		d.reporter.EXPECT().Flush(),
	)

	application := d.app()

	require.NoError(t, application.Start(context.Background()))
	assert.NoError(t, application.Stop(context.Background()))

	waitDone(t, application)
}

func Test_Stop_ContextExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)
	release := make(chan struct{})

	d.server.EXPECT().Start(gomock.Any()).Return(nil)
	d.sampler.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-release
		return nil
	})
	d.reporter.EXPECT().Flush()

	application := d.app()
	require.NoError(t, application.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := application.Stop(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	waitDone(t, application)
}

func Test_Stop_NotStarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)
	d.server.EXPECT().Stop(gomock.Any()).Return(nil)
	d.reporter.EXPECT().Flush()

	assert.NoError(t, d.app().Stop(context.Background()))
}

func Test_Stop_ServerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDeps(ctrl)
	stopErr := errors.New("shutdown deadline exceeded")

	d.server.EXPECT().Stop(gomock.Any()).Return(stopErr)
	d.reporter.EXPECT().Flush()

	assert.Equal(t, stopErr, d.app().Stop(context.Background()))
}

func Test_Module(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target.PID = os.Getpid()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	var application *App

	fxApp := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&application),
	)

	fxApp.RequireStart()
	assert.NotNil(t, application)
	fxApp.RequireStop()
}
