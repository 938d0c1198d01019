package renderers

import (
	"fmt"

	"github.com/JakeFAU/tally/pkg/counter"
	"github.com/JakeFAU/tally/pkg/progress"
)

// FactoryConfig selects the renderers NewFactory attaches to every monitor
// besides the terminal or notebook display.
//   - Metrics: also export counts through these Prometheus collectors.
//   - Log: also log count changes through RenderOptions.Logger.
//   - Quiet: skip the terminal/notebook display entirely.
type FactoryConfig struct {
	Metrics *PrometheusCollectors
	Log     bool
	Quiet   bool
}

// NewFactory returns a progress.RendererFactory that draws with Terminal or
// Notebook according to the resolved display mode.
func NewFactory(fc FactoryConfig) progress.RendererFactory {
	return func(opts progress.RenderOptions) (progress.Renderer, error) {
		var rs []progress.Renderer
		if !fc.Quiet {
			display, err := newDisplay(opts)
			if err != nil {
				return nil, err
			}
			rs = append(rs, display)
		}
		if fc.Metrics != nil {
			rs = append(rs, fc.Metrics.Renderer(opts))
		}
		if fc.Log {
			rs = append(rs, NewLog(opts.Logger, opts))
		}
		if len(rs) == 0 {
			return Multi{}, nil
		}
		return Combine(rs...), nil
	}
}

func newDisplay(opts progress.RenderOptions) (progress.Renderer, error) {
	switch opts.Mode {
	case progress.ModeTerminal:
		return NewTerminal(opts)
	case progress.ModeNotebook:
		return NewNotebook(opts)
	default:
		return nil, fmt.Errorf("%w: no display for mode %q", progress.ErrConfiguration, opts.Mode)
	}
}

// Open is progress.Open with the default terminal/notebook factory filled in
// when cfg names neither a Renderer nor a RendererFactory.
func Open(cfg progress.Config) (*progress.Monitor, error) {
	return progress.Open(withDefaultFactory(cfg))
}

// Do is progress.Do with the default factory filled in like Open.
func Do(cfg progress.Config, fn func(counter.Handle) error) error {
	return progress.Do(withDefaultFactory(cfg), fn)
}

func withDefaultFactory(cfg progress.Config) progress.Config {
	if cfg.Renderer == nil && cfg.RendererFactory == nil {
		cfg.RendererFactory = NewFactory(FactoryConfig{})
	}
	return cfg
}
