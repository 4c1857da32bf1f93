//go:generate mockgen -source=gauge.go -destination=gauge_mock.go -package=metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"pidwatch/internal/config"
)

// Gauge is a single shared numeric value, safe for one writer and many readers
type Gauge interface {
	Set(value float64)
	Value() float64
}

type gauge struct {
	g prometheus.Gauge
}

// NewCPUGauge creates the target CPU gauge and registers it, starting at 0
func NewCPUGauge(registry Registry) (Gauge, error) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: config.CPUMetricName,
		Help: config.CPUMetricHelp,
	})

	if err := registry.Register(g); err != nil {
		return nil, err
	}

	return &gauge{g: g}, nil
}

// Set stores the value atomically
func (g *gauge) Set(value float64) {
	g.g.Set(value)
}

// Value loads the current value atomically
func (g *gauge) Value() float64 {
	var m dto.Metric
	if err := g.g.Write(&m); err != nil {
		return 0
	}

	return m.GetGauge().GetValue()
}
