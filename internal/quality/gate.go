// Package quality implements the data-quality gate that decides whether a
// report run may proceed. The gate compares the freshly extracted metric with
// the last value recorded for the same calendar month and always advances the
// baseline to the current value.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/store"
	"reportbot/internal/util"
)

// FailureReason is the reason attached to a failed evaluation.
const FailureReason = "metric did not increase since last run this month"

// Result is the outcome of one gate evaluation together with the values that
// were compared.
type Result struct {
	Outcome     domain.RunOutcome
	MonthKey    string
	Current     float64
	Baseline    float64 // zero when HasBaseline is false
	HasBaseline bool
}

// Gate evaluates the monitored metric against the per-month baseline.
type Gate struct {
	store  store.QualityStore
	logger *slog.Logger
	now    func() time.Time
}

// NewGate creates a Gate backed by s.
func NewGate(s store.QualityStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = util.Discard()
	}
	return &Gate{store: s, logger: logger, now: time.Now}
}

// Evaluate decides whether the run for runDate may proceed with current as
// the metric value. The lookup of the previous baseline and the write of the
// new one happen as one store operation; a store failure yields an Aborted
// outcome rather than a Failed one.
func (g *Gate) Evaluate(ctx context.Context, current float64, runDate time.Time) Result {
	res := Result{MonthKey: util.MonthKey(runDate), Current: current}

	prev, err := g.store.Swap(ctx, domain.QualityRecord{
		MonthKey:    res.MonthKey,
		MetricValue: current,
		RecordedAt:  g.now(),
	})
	if err != nil {
		g.logger.Error("quality store unavailable", "month", res.MonthKey, "error", err)
		res.Outcome = domain.Abort(domain.StageQualityCheck, fmt.Errorf("quality store: %w", err))
		return res
	}

	if prev != nil {
		res.HasBaseline = true
		res.Baseline = prev.MetricValue
	}
	res.Outcome = decide(res, runDate)

	g.logger.Info("quality gate evaluated",
		"month", res.MonthKey,
		"current", current,
		"baseline", res.Baseline,
		"has_baseline", res.HasBaseline,
		"outcome", res.Outcome.String(),
	)
	return res
}

// decide applies the gate policy in order: no baseline passes, growth passes,
// first of month passes, anything else fails.
func decide(res Result, runDate time.Time) domain.RunOutcome {
	switch {
	case !res.HasBaseline:
		return domain.Pass()
	case res.Current > res.Baseline:
		return domain.Pass()
	case util.IsFirstOfMonth(runDate):
		return domain.Pass()
	default:
		return domain.Fail(FailureReason)
	}
}
