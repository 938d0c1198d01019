package renderers

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/tally/pkg/progress"
)

// Log emits structured zap entries for every change in the count. It is
// useful for headless runs where no display is attached.
type Log struct {
	logger *zap.Logger
	total  int64
	value  uint64
}

// NewLog wires a zap logger to the Renderer interface.
func NewLog(logger *zap.Logger, opts progress.RenderOptions) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Description != "" {
		logger = logger.With(zap.String("description", opts.Description))
	}
	return &Log{logger: logger, total: opts.Total}
}

// Advance logs the forward step.
func (l *Log) Advance(delta uint64) error {
	l.value += delta
	l.logger.Debug("progress advanced", l.fields(zap.Uint64("delta", delta))...)
	return nil
}

// SetAbsolute logs the reset.
func (l *Log) SetAbsolute(value uint64) error {
	l.value = value
	l.logger.Debug("progress set", l.fields()...)
	return nil
}

// Refresh implements progress.Renderer; it performs no action.
func (l *Log) Refresh() error {
	return nil
}

// Finalize logs the final count.
func (l *Log) Finalize() error {
	l.logger.Info("progress finished", l.fields()...)
	return nil
}

func (l *Log) fields(extra ...zap.Field) []zap.Field {
	fields := []zap.Field{zap.Uint64("value", l.value)}
	if l.total > 0 {
		fields = append(fields,
			zap.Int64("total", l.total),
			zap.Float64("percent", float64(l.value)/float64(l.total)*100),
		)
	}
	return append(fields, extra...)
}
