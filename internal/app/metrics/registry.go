//go:generate mockgen -source=registry.go -destination=registry_mock.go -package=metrics
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"pidwatch/internal/app/errors"
)

// ContentType is the media type of Render output
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Registry holds the registered collectors and renders them in the text exposition format
type Registry interface {
	Register(c prometheus.Collector) error
	Render(w io.Writer) error
}

type registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates an empty registry, independent of the prometheus default registry
func NewRegistry() Registry {
	return &registry{reg: prometheus.NewRegistry()}
}

// Register adds a collector; a name clash is reported as ErrFailedToRegister
func (r *registry) Register(c prometheus.Collector) error {
	if err := r.reg.Register(c); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrFailedToRegister, err)
	}

	return nil
}

// Render gathers every metric family and writes HELP, TYPE and value lines for each
func (r *registry) Render(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrFailedToRender, err)
	}

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrFailedToRender, err)
		}
	}

	return nil
}
