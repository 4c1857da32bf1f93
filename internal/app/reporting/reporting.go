//go:generate mockgen -source=reporting.go -destination=reporting_mock.go -package=reporting
package reporting

import (
	"fmt"

	"github.com/getsentry/sentry-go"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

// Reporter forwards fatal errors to an external error tracker
type Reporter interface {
	Capture(err error)
	Flush()
}

// sentryReporter sends errors through a dedicated sentry hub
type sentryReporter struct {
	hub *sentry.Hub
	log logger.Logger
}

// noopReporter is used when no DSN is configured
type noopReporter struct{}

// NewReporter creates a sentry backed reporter, or a no-op one when reporting is not configured
func NewReporter(cfg *config.Config, log logger.Logger) (Reporter, error) {
	if cfg.Reporting.DSN == "" {
		return &noopReporter{}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.Reporting.DSN,
		Release:     config.AppName + "@" + config.Version,
		Environment: cfg.Reporting.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrFailedToInitReporter, err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.Scope().SetTag("target_pid", fmt.Sprintf("%d", cfg.Target.PID))

	return &sentryReporter{
		hub: hub,
		log: log.WithComponent("REPORTING"),
	}, nil
}

// Capture sends err to sentry
func (r *sentryReporter) Capture(err error) {
	if err == nil {
		return
	}

	if id := r.hub.CaptureException(err); id != nil {
		r.log.Debug().Str("event_id", string(*id)).Msg("Error reported")
	}
}

// Flush waits for buffered events to be delivered
func (r *sentryReporter) Flush() {
	if !r.hub.Flush(config.ReportFlushTimeout) {
		r.log.Warn().Msg("Timed out flushing error reports")
	}
}

func (r *noopReporter) Capture(error) {}

func (r *noopReporter) Flush() {}
