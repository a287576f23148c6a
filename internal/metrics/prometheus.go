package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"reportbot/internal/util"
)

// PrometheusSink implements Sink with Prometheus collectors. A batch job
// exits after one run, so the collected values are pushed to a pushgateway
// with Push rather than scraped.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge
	qualityMetric prometheus.Gauge
}

// NewPrometheusSink creates a sink with its own registry.
func NewPrometheusSink(logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = util.Discard()
	}
	s := &PrometheusSink{registry: prometheus.NewRegistry(), logger: logger}

	s.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reportbot_stage_duration_seconds",
		Help:    "Duration of each pipeline stage in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})
	s.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reportbot_stage_failures_total",
		Help: "Total number of failed pipeline stages.",
	}, []string{"stage"})
	s.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reportbot_runs_total",
		Help: "Total number of runs by outcome.",
	}, []string{"outcome"})
	s.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportbot_run_duration_seconds",
		Help: "Duration of the last run in seconds.",
	})
	s.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportbot_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})
	s.qualityMetric = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportbot_quality_metric_value",
		Help: "Metric value evaluated by the quality gate in the last run.",
	})

	s.register(s.stageDuration, "reportbot_stage_duration_seconds")
	s.register(s.stageFailures, "reportbot_stage_failures_total")
	s.register(s.runsTotal, "reportbot_runs_total")
	s.register(s.runDuration, "reportbot_run_duration_seconds")
	s.register(s.lastRun, "reportbot_last_run_timestamp_seconds")
	s.register(s.qualityMetric, "reportbot_quality_metric_value")
	return s
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(c prometheus.Collector, name string) {
	if err := s.registry.Register(c); err != nil {
		s.logger.Warn("metrics: failed to register collector", "name", name, "error", err)
	}
}

// Registry returns the sink's registry.
func (s *PrometheusSink) Registry() *prometheus.Registry { return s.registry }

func (s *PrometheusSink) StageCompleted(stage string, duration time.Duration, err error) {
	s.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		s.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (s *PrometheusSink) QualityMetric(value float64) {
	s.qualityMetric.Set(value)
}

func (s *PrometheusSink) RunFinished(outcome string, duration time.Duration) {
	s.runsTotal.WithLabelValues(outcome).Inc()
	s.runDuration.Set(duration.Seconds())
	s.lastRun.SetToCurrentTime()
}

// Push sends the collected metrics to the pushgateway at url under job. An
// empty url disables pushing.
func (s *PrometheusSink) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(s.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	s.logger.Debug("metrics pushed", "job", job)
	return nil
}
