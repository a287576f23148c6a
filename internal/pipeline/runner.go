// Package pipeline sequences one report run: validate configuration, run the
// quality gate, extract, process, render, upload, publish and notify. The
// first failure aborts the remaining stages, exactly one terminal
// notification is sent and rendered artifacts are always cleaned up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reportbot/internal/domain"
	"reportbot/internal/metrics"
	"reportbot/internal/notify"
	"reportbot/internal/quality"
	"reportbot/internal/util"
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// ConfigValidator reports missing or invalid settings.
type ConfigValidator interface {
	Validate() error
}

// MetricSource returns the current value of the monitored metric.
type MetricSource interface {
	Metric(ctx context.Context) (float64, error)
}

// QualityEvaluator decides whether the run may proceed.
type QualityEvaluator interface {
	Evaluate(ctx context.Context, current float64, runDate time.Time) quality.Result
}

// Extractor runs a report query.
type Extractor interface {
	Query(ctx context.Context, query string) (domain.Table, error)
}

// TargetSource returns the KPI targets, or nil when none are configured.
type TargetSource interface {
	Targets(ctx context.Context) (*domain.Table, error)
}

// Processor shapes the extracted tables.
type Processor interface {
	Process(raw map[domain.Dimension]domain.Table, targets *domain.Table, runDate time.Time) (map[domain.Dimension]domain.Table, error)
}

// Renderer draws a table as an image and returns its path.
type Renderer interface {
	Render(ctx context.Context, table domain.Table, dim domain.Dimension) (string, error)
}

// Uploader publishes a local image and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// SheetWriter replaces the published product line rows.
type SheetWriter interface {
	Replace(ctx context.Context, table domain.Table) error
}

// Notifier delivers a message to a channel.
type Notifier interface {
	Notify(ctx context.Context, channel domain.Channel, msg notify.Message) error
}

// Cleaner removes the temporary artifacts of a run.
type Cleaner interface {
	Clean() (int, error)
}

// Deps are the collaborators of a Runner. Targets, FullUploader and Metrics
// are optional.
type Deps struct {
	Config        ConfigValidator
	Metric        MetricSource
	Gate          QualityEvaluator
	Extractor     Extractor
	Queries       map[domain.Dimension]string
	Targets       TargetSource
	Processor     Processor
	Renderer      Renderer
	ThumbUploader Uploader
	FullUploader  Uploader
	Sheet         SheetWriter
	SheetURL      string
	Notifier      Notifier
	Cleaner       Cleaner
	Metrics       metrics.Sink
	Logger        *slog.Logger
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Chart is one rendered and uploaded report image.
type Chart struct {
	Dimension domain.Dimension
	Path      string
	ThumbURL  string
	FullURL   string
}

// Report summarises a finished run.
type Report struct {
	RunID    string
	Outcome  domain.RunOutcome
	States   []domain.State
	Err      error
	Quality  *quality.Result
	Charts   []Chart
	Rows     map[domain.Dimension]int
	Duration time.Duration
}

// State returns the last state reached.
func (r *Report) State() domain.State {
	if len(r.States) == 0 {
		return domain.StateIdle
	}
	return r.States[len(r.States)-1]
}

func (r *Report) transition(s domain.State) {
	r.States = append(r.States, s)
}

// chartDimensions are rendered and uploaded in this order.
var chartDimensions = []domain.Dimension{domain.DimensionCountry, domain.DimensionManager}

// extractDimensions are queried in this order.
var extractDimensions = []domain.Dimension{domain.DimensionCountry, domain.DimensionManager, domain.DimensionProductLine}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Runner executes report runs. It holds no business logic beyond stopping on
// the first failure, notifying once and cleaning up.
type Runner struct {
	d      Deps
	logger *slog.Logger
	sink   metrics.Sink
	now    func() time.Time
	newID  func() string
}

// NewRunner checks that every required collaborator is present.
func NewRunner(d Deps) (*Runner, error) {
	var missing []string
	required := []struct {
		name string
		ok   bool
	}{
		{"Config", d.Config != nil},
		{"Metric", d.Metric != nil},
		{"Gate", d.Gate != nil},
		{"Extractor", d.Extractor != nil},
		{"Processor", d.Processor != nil},
		{"Renderer", d.Renderer != nil},
		{"ThumbUploader", d.ThumbUploader != nil},
		{"Sheet", d.Sheet != nil},
		{"Notifier", d.Notifier != nil},
		{"Cleaner", d.Cleaner != nil},
	}
	for _, r := range required {
		if !r.ok {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pipeline: missing collaborators %v", missing)
	}

	r := &Runner{d: d, logger: d.Logger, sink: d.Metrics, now: time.Now, newID: uuid.NewString}
	if r.logger == nil {
		r.logger = util.Discard()
	}
	if r.sink == nil {
		r.sink = metrics.NewNoopSink()
	}
	return r, nil
}

// Run executes one run for runDate and returns its report. Report.Err is nil
// only when every stage succeeded.
func (r *Runner) Run(ctx context.Context, runDate time.Time) Report {
	start := r.now()
	rep := Report{RunID: r.newID(), States: []domain.State{domain.StateIdle}, Rows: map[domain.Dimension]int{}}
	log := r.logger.With("run_id", rep.RunID)
	log.Info("run started", "run_date", runDate.Format(time.DateOnly))

	err := r.execute(ctx, runDate, &rep, log)
	rep.Outcome = outcomeFor(err)
	rep.Err = err

	if err != nil {
		rep.transition(domain.StateFailed)
		log.Error("run failed", "outcome", rep.Outcome.String(), "error", err)
		rep.transition(domain.StateNotifyError)
		r.notifyError(ctx, log, err)
	}

	r.cleanup(log)
	rep.transition(domain.StateDone)

	rep.Duration = r.now().Sub(start)
	r.sink.RunFinished(string(rep.Outcome.Kind), rep.Duration)
	log.Info("run finished", "outcome", rep.Outcome.String(), "duration", rep.Duration.String())
	return rep
}

func (r *Runner) execute(ctx context.Context, runDate time.Time, rep *Report, log *slog.Logger) error {
	// Validating
	if err := r.stage(rep, log, domain.StateValidating, domain.StageValidate, func() error {
		if err := r.d.Config.Validate(); err != nil {
			return &ConfigError{Err: err}
		}
		return nil
	}); err != nil {
		return err
	}

	// QualityCheck
	if err := r.stage(rep, log, domain.StateQualityCheck, domain.StageQualityCheck, func() error {
		current, err := r.d.Metric.Metric(ctx)
		if err != nil {
			return fmt.Errorf("metric query: %w", err)
		}
		r.sink.QualityMetric(current)

		res := r.d.Gate.Evaluate(ctx, current, runDate)
		rep.Quality = &res
		switch res.Outcome.Kind {
		case domain.Failed:
			return &QualityFailError{MonthKey: res.MonthKey, Current: res.Current, Baseline: res.Baseline, Reason: res.Outcome.Reason}
		case domain.Aborted:
			return &QualityAbortError{Err: res.Outcome.Cause}
		}
		return nil
	}); err != nil {
		return err
	}

	// Extracting
	raw := make(map[domain.Dimension]domain.Table, len(extractDimensions))
	var targets *domain.Table
	if err := r.stage(rep, log, domain.StateExtracting, domain.StageExtract, func() error {
		for _, dim := range extractDimensions {
			t, err := r.d.Extractor.Query(ctx, r.d.Queries[dim])
			if err != nil {
				return fmt.Errorf("%s query: %w", dim, err)
			}
			raw[dim] = t
			rep.Rows[dim] = t.Len()
			log.Info("data extracted", "dimension", string(dim), "rows", t.Len())
		}
		if r.d.Targets != nil {
			t, err := r.d.Targets.Targets(ctx)
			if err != nil {
				return fmt.Errorf("targets: %w", err)
			}
			targets = t
		}
		return nil
	}); err != nil {
		return err
	}

	// Processing
	var processed map[domain.Dimension]domain.Table
	if err := r.stage(rep, log, domain.StateProcessing, domain.StageProcess, func() error {
		var err error
		processed, err = r.d.Processor.Process(raw, targets, runDate)
		return err
	}); err != nil {
		return err
	}

	// Rendering
	if err := r.stage(rep, log, domain.StateRendering, domain.StageRender, func() error {
		for _, dim := range chartDimensions {
			path, err := r.d.Renderer.Render(ctx, processed[dim], dim)
			if err != nil {
				return fmt.Errorf("%s chart: %w", dim, err)
			}
			rep.Charts = append(rep.Charts, Chart{Dimension: dim, Path: path})
		}
		return nil
	}); err != nil {
		return err
	}

	// Uploading
	if err := r.stage(rep, log, domain.StateUploading, domain.StageUpload, func() error {
		for i := range rep.Charts {
			c := &rep.Charts[i]
			thumb, err := r.d.ThumbUploader.Upload(ctx, c.Path)
			if err != nil {
				return fmt.Errorf("%s thumbnail: %w", c.Dimension, err)
			}
			c.ThumbURL, c.FullURL = thumb, thumb
			if r.d.FullUploader != nil {
				full, err := r.d.FullUploader.Upload(ctx, c.Path)
				if err != nil {
					return fmt.Errorf("%s full image: %w", c.Dimension, err)
				}
				c.FullURL = full
			}
		}
		return nil
	}); err != nil {
		return err
	}

	// Publishing
	if err := r.stage(rep, log, domain.StatePublishing, domain.StagePublish, func() error {
		return r.d.Sheet.Replace(ctx, processed[domain.DimensionProductLine])
	}); err != nil {
		return err
	}

	// Notifying. Delivery failures are logged, never escalated.
	return r.stage(rep, log, domain.StateNotifying, domain.StageNotify, func() error {
		for _, c := range rep.Charts {
			r.send(ctx, log, domain.ChannelMain, notify.ReportMessage(c.Dimension, runDate, c.ThumbURL, c.FullURL))
		}
		if r.d.SheetURL != "" {
			r.send(ctx, log, domain.ChannelMain, notify.ProductLineMessage(runDate, r.d.SheetURL))
		}
		r.send(ctx, log, domain.ChannelSuccessLog, notify.SuccessMessage(r.now()))
		return nil
	})
}

// stage enters state, runs fn and records its duration. Untyped errors are
// wrapped in a StageError for stage.
func (r *Runner) stage(rep *Report, log *slog.Logger, state domain.State, stage domain.Stage, fn func() error) error {
	rep.transition(state)
	log.Info("stage started", "stage", string(stage))

	start := r.now()
	err := fn()
	r.sink.StageCompleted(string(stage), r.now().Sub(start), err)
	if err == nil {
		return nil
	}

	var (
		cfgErr   *ConfigError
		failErr  *QualityFailError
		abortErr *QualityAbortError
		stageErr *StageError
	)
	if errors.As(err, &cfgErr) || errors.As(err, &failErr) || errors.As(err, &abortErr) || errors.As(err, &stageErr) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

func (r *Runner) notifyError(ctx context.Context, log *slog.Logger, err error) {
	at := r.now()
	var (
		failErr  *QualityFailError
		abortErr *QualityAbortError
		stageErr *StageError
		cfgErr   *ConfigError
		msg      notify.Message
	)
	switch {
	case errors.As(err, &failErr):
		msg = notify.QualityFailMessage(at, failErr.Current, failErr.Baseline)
	case errors.As(err, &abortErr):
		msg = notify.QualityAbortMessage(at, abortErr.Err)
	case errors.As(err, &stageErr):
		msg = notify.ErrorMessage(at, stageErr.Stage, stageErr.Err)
	case errors.As(err, &cfgErr):
		msg = notify.ErrorMessage(at, domain.StageValidate, cfgErr.Err)
	default:
		msg = notify.ErrorMessage(at, "", err)
	}
	r.send(ctx, log, domain.ChannelErrorLog, msg)
}

func (r *Runner) send(ctx context.Context, log *slog.Logger, ch domain.Channel, msg notify.Message) {
	if err := r.d.Notifier.Notify(ctx, ch, msg); err != nil {
		log.Warn("notification not delivered", "channel", string(ch), "title", msg.Title, "error", err)
	}
}

func (r *Runner) cleanup(log *slog.Logger) {
	n, err := r.d.Cleaner.Clean()
	if err != nil {
		log.Warn("cleanup failed", "removed", n, "error", err)
		return
	}
	log.Info("artifacts cleaned up", "removed", n)
}
