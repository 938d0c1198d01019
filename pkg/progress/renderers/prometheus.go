package renderers

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/tally/pkg/progress"
)

// PrometheusCollectors owns the progress collectors shared by every monitor
// that exports through them. Register once per registry; create one
// Prometheus renderer per monitor with Renderer.
type PrometheusCollectors struct {
	value    *prometheus.GaugeVec
	total    *prometheus.GaugeVec
	advanced *prometheus.CounterVec
	resets   *prometheus.CounterVec
}

// NewPrometheusCollectors registers the collectors against reg, defaulting to
// prometheus.DefaultRegisterer. Collectors already registered on reg by an
// earlier call are reused, so every caller exports into the same series.
func NewPrometheusCollectors(reg prometheus.Registerer) (*PrometheusCollectors, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"monitor", "description"}
	c := &PrometheusCollectors{
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tally_progress_value",
			Help: "Last rendered counter value per monitor.",
		}, labels),
		total: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tally_progress_total",
			Help: "Target count per monitor; 0 when unknown.",
		}, labels),
		advanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_progress_advance_total",
			Help: "Sum of forward deltas rendered per monitor.",
		}, labels),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_progress_resets_total",
			Help: "Absolute sets rendered per monitor.",
		}, labels),
	}
	var err error
	if c.value, err = register(reg, c.value); err != nil {
		return nil, err
	}
	if c.total, err = register(reg, c.total); err != nil {
		return nil, err
	}
	if c.advanced, err = register(reg, c.advanced); err != nil {
		return nil, err
	}
	if c.resets, err = register(reg, c.resets); err != nil {
		return nil, err
	}
	return c, nil
}

// Renderer returns a Renderer exporting one monitor's count. The monitor's
// series exist from here until Finalize.
func (c *PrometheusCollectors) Renderer(opts progress.RenderOptions) *Prometheus {
	labels := prometheus.Labels{"monitor": opts.MonitorID, "description": opts.Description}
	p := &Prometheus{
		collectors: c,
		labels:     labels,
		value:      c.value.With(labels),
		advanced:   c.advanced.With(labels),
		resets:     c.resets.With(labels),
	}
	c.total.With(labels).Set(float64(opts.Total))
	return p
}

// Prometheus renders a monitor's count as Prometheus metrics.
type Prometheus struct {
	collectors *PrometheusCollectors
	labels     prometheus.Labels
	value      prometheus.Gauge
	advanced   prometheus.Counter
	resets     prometheus.Counter
}

// Advance adds delta to the value gauge and the advance counter.
func (p *Prometheus) Advance(delta uint64) error {
	p.value.Add(float64(delta))
	p.advanced.Add(float64(delta))
	return nil
}

// SetAbsolute sets the value gauge and counts the reset.
func (p *Prometheus) SetAbsolute(value uint64) error {
	p.value.Set(float64(value))
	p.resets.Inc()
	return nil
}

// Refresh implements progress.Renderer; scrapes read the gauges directly.
func (p *Prometheus) Refresh() error {
	return nil
}

// Finalize drops the monitor's series so closed monitors do not accumulate
// in long-running processes.
func (p *Prometheus) Finalize() error {
	c := p.collectors
	c.value.Delete(p.labels)
	c.total.Delete(p.labels)
	c.advanced.Delete(p.labels)
	c.resets.Delete(p.labels)
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register progress collector: %w", err)
	}
	return c, nil
}
