package app

import (
	"context"

	"go.uber.org/fx"

	"pidwatch/internal/app/reporting"
	"pidwatch/internal/app/sampler"
	"pidwatch/internal/app/server"
	"pidwatch/internal/config/logger"
)

// App represents the main application container
type App struct {
	sampler    sampler.Sampler
	server     server.Server
	reporter   reporting.Reporter
	shutdowner fx.Shutdowner
	log        logger.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewApp creates a new application instance with its dependencies
func NewApp(
	sampler sampler.Sampler,
	server server.Server,
	reporter reporting.Reporter,
	shutdowner fx.Shutdowner,
	log logger.Logger,
) *App {
	return &App{
		sampler:    sampler,
		server:     server,
		reporter:   reporter,
		shutdowner: shutdowner,
		log:        log.WithComponent("APP"),
		done:       make(chan struct{}),
	}
}

// Start binds the metrics endpoint, then launches the sampler in the background
func (a *App) Start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		a.log.Error().Err(err).Msg("Failed to start metrics endpoint")
		a.reporter.Capture(err)
		a.reporter.Flush()

		return err
	}

	samplerCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.run(samplerCtx)

	return nil
}

// run drives the sampler and asks fx to exit with a failure code when it stops on an error
func (a *App) run(ctx context.Context) {
	defer close(a.done)

	err := a.sampler.Run(ctx)
	if err == nil {
		return
	}

	a.log.Error().Err(err).Msg("Sampler stopped, shutting down")
	a.reporter.Capture(err)

	if shutdownErr := a.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		a.log.Error().Err(shutdownErr).Msg("Failed to request shutdown")
	}
}

// Stop cancels the sampler, waits for it, then stops the metrics endpoint
func (a *App) Stop(ctx context.Context) error {
	defer a.reporter.Flush()

	if a.cancel != nil {
		a.cancel()

		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return a.server.Stop(ctx)
}

// Register registers the application's lifecycle hooks with fx
func Register(lifecycle fx.Lifecycle, app *App) {
	lifecycle.Append(fx.Hook{
		OnStart: app.Start,
		OnStop:  app.Stop,
	})
}
