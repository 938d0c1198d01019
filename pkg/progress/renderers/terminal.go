package renderers

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/JakeFAU/tally/pkg/progress"
)

// Terminal option keys accepted in progress.RenderOptions.Options.
const (
	OptShowBytes       = "show_bytes"
	OptShowRate        = "show_iterations_per_second"
	OptShowElapsed     = "show_elapsed"
	OptClearOnFinish   = "clear_on_finish"
	OptSpinnerType     = "spinner_type"
	OptColorCodes      = "color_codes"
	OptThrottle        = "throttle"
	OptPredictTime     = "predict_time"
	OptRenderBlank     = "render_blank"
	defaultSpinnerType = 14
)

// maxBarValue is the largest count the bar library tracks exactly; it keeps
// its running total in a float64. Larger counts saturate.
const maxBarValue = 1 << 53

// Terminal draws an in-place progress bar with schollz/progressbar. An
// unknown total (0) renders a spinner with a running count.
type Terminal struct {
	bar           *progressbar.ProgressBar
	out           io.Writer
	limit         int64
	value         int64
	clearOnFinish bool
}

// NewTerminal builds a Terminal from opts. Unknown pass-through keys are
// rejected with progress.ErrConfiguration.
func NewTerminal(opts progress.RenderOptions) (*Terminal, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	pt := newPassthrough(opts.Options)

	limit := opts.Total
	if limit <= 0 {
		limit = -1
	}
	clearOnFinish := pt.boolean(OptClearOnFinish, false)
	barOpts := []progressbar.Option{
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionEnableColorCodes(pt.boolean(OptColorCodes, false)),
		progressbar.OptionShowBytes(pt.boolean(OptShowBytes, false)),
		progressbar.OptionSetPredictTime(pt.boolean(OptPredictTime, true)),
		progressbar.OptionThrottle(pt.duration(OptThrottle, 0)),
		progressbar.OptionSetRenderBlankState(pt.boolean(OptRenderBlank, true)),
	}
	switch {
	case opts.Width > 0:
		barOpts = append(barOpts, progressbar.OptionSetWidth(opts.Width))
	case opts.DynamicWidth:
		barOpts = append(barOpts, progressbar.OptionFullWidth())
	}
	if pt.boolean(OptShowRate, false) {
		barOpts = append(barOpts, progressbar.OptionShowIts())
	}
	if pt.boolean(OptShowElapsed, false) {
		barOpts = append(barOpts, progressbar.OptionShowElapsedTimeOnFinish())
	}
	if clearOnFinish {
		barOpts = append(barOpts, progressbar.OptionClearOnFinish())
	}
	if limit < 0 {
		barOpts = append(barOpts, progressbar.OptionSpinnerType(pt.integer(OptSpinnerType, defaultSpinnerType)))
	}
	if err := pt.finish("terminal"); err != nil {
		return nil, err
	}

	return &Terminal{
		bar:           progressbar.NewOptions64(limit, barOpts...),
		out:           out,
		limit:         limit,
		clearOnFinish: clearOnFinish,
	}, nil
}

// Advance moves the bar forward by delta.
func (t *Terminal) Advance(delta uint64) error {
	next := t.value + toBarValue(delta)
	if next > maxBarValue {
		next = maxBarValue
	}
	return t.moveTo(next)
}

// SetAbsolute moves the bar to value.
func (t *Terminal) SetAbsolute(value uint64) error {
	return t.moveTo(toBarValue(value))
}

// Refresh redraws the bar.
func (t *Terminal) Refresh() error {
	return t.bar.RenderBlank()
}

// Finalize completes the bar when the total was reached or is unknown,
// otherwise leaves it at its current position, then ends the line.
func (t *Terminal) Finalize() error {
	var err error
	if t.limit < 0 || t.value >= t.limit {
		err = t.bar.Finish()
	} else {
		err = t.bar.Exit()
	}
	if err != nil {
		return fmt.Errorf("finish bar: %w", err)
	}
	if !t.clearOnFinish {
		if _, err := io.WriteString(t.out, "\n"); err != nil {
			return fmt.Errorf("end bar line: %w", err)
		}
	}
	return flush(t.out)
}

// moveTo draws next. The bar library stops drawing once it reaches its max
// and rejects values past it, so an overrun raises the max and a finished bar
// is reset before moving again.
func (t *Terminal) moveTo(next int64) error {
	restart := next < t.value
	if t.limit > 0 && next > t.limit {
		t.limit = next
		t.bar.ChangeMax64(next)
		restart = true
	}
	if restart && t.bar.IsFinished() {
		t.bar.Reset()
	}
	t.value = next
	return t.bar.Set64(next)
}

func toBarValue(v uint64) int64 {
	if v > maxBarValue {
		return maxBarValue
	}
	return int64(v)
}
