package renderers

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cast"

	"github.com/JakeFAU/tally/pkg/progress"
)

// passthrough reads display-library overrides from RenderOptions.Options.
// Every key must be consumed; leftovers are reported by unknown.
type passthrough struct {
	raw  map[string]any
	used map[string]bool
	err  error
}

func newPassthrough(raw map[string]any) *passthrough {
	return &passthrough{raw: raw, used: make(map[string]bool, len(raw))}
}

func (p *passthrough) lookup(key string) (any, bool) {
	v, ok := p.raw[key]
	if ok {
		p.used[key] = true
	}
	return v, ok
}

func (p *passthrough) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: option %q: %w", progress.ErrConfiguration, key, err)
	}
}

func (p *passthrough) boolean(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *passthrough) integer(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *passthrough) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

// finish returns the first conversion error, or an error naming any keys no
// renderer option consumed.
func (p *passthrough) finish(renderer string) error {
	if p.err != nil {
		return p.err
	}
	var unknown []string
	for k := range p.raw {
		if !p.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: unknown %s options %v", progress.ErrConfiguration, renderer, unknown)
}

// flush pushes buffered output through writers that support it.
func flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
