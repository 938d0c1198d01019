package progress

import (
	"io"

	"go.uber.org/zap"
)

// Renderer displays the monitor's count. The Monitor serializes every call, so
// implementations do not have to be safe for concurrent use.
type Renderer interface {
	// Advance moves the displayed count forward by delta.
	Advance(delta uint64) error
	// SetAbsolute replaces the displayed count, which may move it backwards.
	SetAbsolute(value uint64) error
	// Refresh forces a redraw.
	Refresh() error
	// Finalize flushes and releases the underlying output. It is called once.
	Finalize() error
}

// RenderOptions is the configuration bag handed to a RendererFactory. Mode is
// always resolved to ModeTerminal or ModeNotebook by the time a factory sees it.
type RenderOptions struct {
	MonitorID    string
	Total        int64
	Output       io.Writer
	Mode         DisplayMode
	DynamicWidth bool
	Width        int
	Description  string
	// Options carries display-library specific overrides verbatim.
	Options map[string]any
	Logger  *zap.Logger
}

// RendererFactory builds a Renderer for a freshly opened Monitor.
type RendererFactory func(RenderOptions) (Renderer, error)
