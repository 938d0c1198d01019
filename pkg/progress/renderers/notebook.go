package renderers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JakeFAU/tally/pkg/progress"
)

// Notebook writes one plain line per distinct count, without carriage
// returns or cursor movement, so it reads correctly in notebook cells, pipes
// and CI logs.
//
// Example output:
//
//	rules:  40% | 40/100
//	rules:  80% | 80/100
//	rules: 100% | 100/100 done
type Notebook struct {
	out   io.Writer
	desc  string
	total int64
	value uint64
	last  string
}

// NewNotebook builds a Notebook from opts. It takes no pass-through options.
func NewNotebook(opts progress.RenderOptions) (*Notebook, error) {
	if err := newPassthrough(opts.Options).finish("notebook"); err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Notebook{out: out, desc: opts.Description, total: opts.Total}, nil
}

// Advance adds delta and prints the new line.
func (n *Notebook) Advance(delta uint64) error {
	n.value += delta
	return n.emit("")
}

// SetAbsolute replaces the count and prints the new line.
func (n *Notebook) SetAbsolute(value uint64) error {
	n.value = value
	return n.emit("")
}

// Refresh prints the current line unless it is already the last one shown.
func (n *Notebook) Refresh() error {
	return n.emit("")
}

// Finalize prints the closing line and flushes buffered writers.
func (n *Notebook) Finalize() error {
	if err := n.emit(" done"); err != nil {
		return err
	}
	return flush(n.out)
}

func (n *Notebook) emit(suffix string) error {
	line := n.line() + suffix
	if line == n.last {
		return nil
	}
	if _, err := fmt.Fprintln(n.out, line); err != nil {
		return fmt.Errorf("write progress line: %w", err)
	}
	n.last = line
	return nil
}

func (n *Notebook) line() string {
	var b strings.Builder
	if n.desc != "" {
		b.WriteString(n.desc)
		b.WriteString(": ")
	}
	if n.total > 0 {
		pct := float64(n.value) / float64(n.total) * 100
		fmt.Fprintf(&b, "%3.0f%% | %d/%d", pct, n.value, n.total)
	} else {
		fmt.Fprintf(&b, "%d", n.value)
	}
	return b.String()
}
