package renderers

import (
	"errors"

	"github.com/JakeFAU/tally/pkg/progress"
)

// Multi forwards every call to each of its renderers in order. A failing
// renderer does not stop the others; the errors are joined.
type Multi []progress.Renderer

// Combine returns a single Renderer for rs, skipping nils.
func Combine(rs ...progress.Renderer) progress.Renderer {
	out := make(Multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Advance implements progress.Renderer.
func (m Multi) Advance(delta uint64) error {
	return m.each(func(r progress.Renderer) error { return r.Advance(delta) })
}

// SetAbsolute implements progress.Renderer.
func (m Multi) SetAbsolute(value uint64) error {
	return m.each(func(r progress.Renderer) error { return r.SetAbsolute(value) })
}

// Refresh implements progress.Renderer.
func (m Multi) Refresh() error {
	return m.each(progress.Renderer.Refresh)
}

// Finalize implements progress.Renderer.
func (m Multi) Finalize() error {
	return m.each(progress.Renderer.Finalize)
}

func (m Multi) each(fn func(progress.Renderer) error) error {
	var errs []error
	for _, r := range m {
		if err := fn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
