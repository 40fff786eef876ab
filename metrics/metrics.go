// Package metrics is the sink surface the trainer reports into: named
// scalar values, fire-and-forget. Sinks hold no training logic.
//
// Metric names are stable across phases for downstream dashboards:
//
//	{phase}/epoch_loss
//	{phase}/epoch_questions/question_{n}_loss
//	{phase}/step_loss        (only when per-step logging is enabled)
//	{phase}/accuracy         (only for the binary schema)
package metrics

import "go.uber.org/zap"

// Sink receives named scalars. Implementations must tolerate any name
// and never fail the training step.
type Sink interface {
	Log(name string, value float64, step int)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Log(string, float64, int) {}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Log(name string, value float64, step int) {
	for _, s := range m {
		s.Log(name, value, step)
	}
}

// ZapSink logs each scalar as a structured info line.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (z *ZapSink) Log(name string, value float64, step int) {
	z.log.Info("metric",
		zap.String("name", name),
		zap.Float64("value", value),
		zap.Int("step", step))
}
