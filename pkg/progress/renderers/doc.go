// Package renderers implements concrete progress.Renderer adapters: an
// in-place terminal bar, a line-oriented notebook/plain-text writer, a zap log
// renderer, Prometheus gauges, a fan-out combinator, and an in-memory Recorder
// for tests. NewFactory picks between them from progress.RenderOptions, and
// Open/Do wire that factory into progress.Open/progress.Do.
package renderers
