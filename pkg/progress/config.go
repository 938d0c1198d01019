package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// DisplayMode selects how a Renderer draws progress.
type DisplayMode string

// Supported display modes.
const (
	// ModeAuto defers to Config.Detector (DetectMode by default).
	ModeAuto DisplayMode = "auto"
	// ModeTerminal redraws a single line in place.
	ModeTerminal DisplayMode = "terminal"
	// ModeNotebook writes one plain line per update for notebook cells,
	// pipes and log files.
	ModeNotebook DisplayMode = "notebook"
)

// ParseDisplayMode converts a textual mode ("auto", "terminal", "notebook",
// or the boolean forms "true"/"false" for notebook) into a DisplayMode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "terminal", "false":
		return ModeTerminal, nil
	case "notebook", "true":
		return ModeNotebook, nil
	default:
		return "", configError("unknown display mode %q", s)
	}
}

// Memory selects where the counter cell is allocated.
type Memory string

// Supported memory kinds.
const (
	// MemoryHost is ordinary process memory.
	MemoryHost Memory = "host"
	// MemoryManaged is memory shared with an accelerator. It requires an
	// Allocator registered with RegisterAllocator.
	MemoryManaged Memory = "managed"
)

const (
	// DefaultUpdateInterval is the poller period used when none is configured.
	DefaultUpdateInterval = 100 * time.Millisecond
	// MinUpdateInterval and MaxUpdateInterval bound Config.UpdateInterval.
	MinUpdateInterval = 10 * time.Millisecond
	MaxUpdateInterval = time.Second
)

// Clock supplies timestamps for snapshots and close summaries.
type Clock interface {
	Now() time.Time
}

// IDGenerator names monitors.
type IDGenerator interface {
	NewID() (string, error)
}

// Config controls a Monitor. The zero value is not usable on its own: Open
// needs either Renderer or RendererFactory.
//   - Total: target count; 0 means unknown.
//   - UpdateInterval: poller period (default 100ms, 10ms-1s).
//   - Output: sink for the display (default os.Stdout).
//   - Mode: terminal, notebook or auto (default auto).
//   - FixedWidth: disable resizing the bar to the terminal width.
//   - Options: pass-through overrides for the display library.
type Config struct {
	Total          int64
	UpdateInterval time.Duration
	Output         io.Writer
	Mode           DisplayMode
	FixedWidth     bool
	Width          int
	Description    string
	Options        map[string]any
	Memory         Memory

	Renderer        Renderer
	RendererFactory RendererFactory
	Detector        func(io.Writer) DisplayMode
	Registry        *Registry

	Logger *zap.Logger
	Clock  Clock
	IDs    IDGenerator
}

func (c Config) withDefaults() Config {
	if c.UpdateInterval == 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.Memory == "" {
		c.Memory = MemoryHost
	}
	if c.Detector == nil {
		c.Detector = DetectMode
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate reports the first invalid field wrapped in ErrConfiguration.
// Zero values that have defaults are accepted.
func (c Config) Validate() error {
	if c.UpdateInterval != 0 &&
		(c.UpdateInterval < MinUpdateInterval || c.UpdateInterval > MaxUpdateInterval) {
		return configError("update interval %s outside [%s, %s]",
			c.UpdateInterval, MinUpdateInterval, MaxUpdateInterval)
	}
	if c.Total < 0 {
		return configError("total must be >= 0, got %d", c.Total)
	}
	if c.Width < 0 {
		return configError("width must be >= 0, got %d", c.Width)
	}
	switch c.Mode {
	case "", ModeAuto, ModeTerminal, ModeNotebook:
	default:
		return configError("unknown display mode %q", c.Mode)
	}
	switch c.Memory {
	case "", MemoryHost, MemoryManaged:
	default:
		return configError("unknown memory kind %q", c.Memory)
	}
	if c.Renderer == nil && c.RendererFactory == nil {
		return configError("renderer or renderer factory is required")
	}
	return nil
}

func (c Config) renderOptions(id string, mode DisplayMode) RenderOptions {
	opts := make(map[string]any, len(c.Options))
	for k, v := range c.Options {
		opts[k] = v
	}
	return RenderOptions{
		MonitorID:    id,
		Total:        c.Total,
		Output:       c.Output,
		Mode:         mode,
		DynamicWidth: !c.FixedWidth,
		Width:        c.Width,
		Description:  c.Description,
		Options:      opts,
		Logger:       c.Logger,
	}
}

// DetectMode picks a display mode from the execution environment: notebook
// inside an interactive kernel, terminal when w is a TTY, notebook otherwise.
func DetectMode(w io.Writer) DisplayMode {
	return detectMode(w, os.Getenv, isTerminal)
}

func detectMode(w io.Writer, getenv func(string) string, tty func(io.Writer) bool) DisplayMode {
	if getenv("JPY_PARENT_PID") != "" {
		return ModeNotebook
	}
	if tty(w) {
		return ModeTerminal
	}
	return ModeNotebook
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (c Config) resolveMode() (DisplayMode, error) {
	if c.Mode != ModeAuto {
		return c.Mode, nil
	}
	mode := c.Detector(c.Output)
	switch mode {
	case ModeTerminal, ModeNotebook:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: detector returned %q", ErrConfiguration, mode)
	}
}
