// Package metrics records run and stage metrics of the report pipeline.
package metrics

import "time"

// Sink records pipeline metrics.
// All methods are fire-and-forget: implementations must not block or return
// errors to the pipeline.
type Sink interface {
	// StageCompleted records one stage; err is nil on success.
	StageCompleted(stage string, duration time.Duration, err error)

	// QualityMetric records the metric value evaluated by the quality gate.
	QualityMetric(value float64)

	// RunFinished records the outcome kind ("passed", "failed", "aborted") of
	// a whole run.
	RunFinished(outcome string, duration time.Duration)
}

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) StageCompleted(stage string, duration time.Duration, err error) {}
func (n *NoopSink) QualityMetric(value float64)                                    {}
func (n *NoopSink) RunFinished(outcome string, duration time.Duration)             {}
