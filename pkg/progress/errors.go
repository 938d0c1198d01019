package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports invalid construction arguments to Open.
	ErrConfiguration = errors.New("invalid progress configuration")
	// ErrUnsupportedContext reports a memory kind the process cannot allocate.
	ErrUnsupportedContext = errors.New("unsupported progress context")
	// ErrHostUpdateUnsupported is returned by Monitor.Increment and Monitor.Set
	// when the counter lives in managed memory and may only be updated by
	// device-side producers.
	ErrHostUpdateUnsupported = errors.New("host-side counter update not supported for managed memory")
	// ErrRenderBackend matches every *RenderError via errors.Is.
	ErrRenderBackend = errors.New("render backend failure")
)

// RenderError wraps a failure raised by a Renderer.
type RenderError struct {
	// Op names the renderer call that failed (advance, set, refresh, finalize).
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("renderer %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRenderBackend) match any RenderError.
func (e *RenderError) Is(target error) bool {
	return target == ErrRenderBackend
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
