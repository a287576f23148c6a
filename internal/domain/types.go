// Package domain defines the core types shared by the report pipeline: the
// quality baseline record, run outcomes, tabular data and the names of
// dimensions, channels and runner states.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Quality baseline
// ---------------------------------------------------------------------------

// QualityRecord is the last recorded value of the monitored metric for one
// calendar month.
type QualityRecord struct {
	MonthKey    string    // "2006-01"
	MetricValue float64   // net merchandise value at the time of the run
	RecordedAt  time.Time // when the record was written
}

// ---------------------------------------------------------------------------
// Run outcome
// ---------------------------------------------------------------------------

// OutcomeKind classifies a run outcome.
type OutcomeKind string

const (
	Passed  OutcomeKind = "passed"
	Failed  OutcomeKind = "failed"
	Aborted OutcomeKind = "aborted"
)

// RunOutcome is the ephemeral result of a gate evaluation or a whole run.
// Reason is set for Failed, Stage and Cause for Aborted.
type RunOutcome struct {
	Kind   OutcomeKind
	Reason string
	Stage  Stage
	Cause  error
}

// Pass returns a Passed outcome.
func Pass() RunOutcome { return RunOutcome{Kind: Passed} }

// Fail returns a Failed outcome with the given reason.
func Fail(reason string) RunOutcome { return RunOutcome{Kind: Failed, Reason: reason} }

// Abort returns an Aborted outcome for the given stage and cause.
func Abort(stage Stage, cause error) RunOutcome {
	return RunOutcome{Kind: Aborted, Stage: stage, Cause: cause}
}

func (o RunOutcome) Passed() bool  { return o.Kind == Passed }
func (o RunOutcome) Failed() bool  { return o.Kind == Failed }
func (o RunOutcome) Aborted() bool { return o.Kind == Aborted }

func (o RunOutcome) String() string {
	switch o.Kind {
	case Failed:
		return fmt.Sprintf("failed: %s", o.Reason)
	case Aborted:
		return fmt.Sprintf("aborted at %s: %v", o.Stage, o.Cause)
	default:
		return string(o.Kind)
	}
}

// ---------------------------------------------------------------------------
// Tabular data
// ---------------------------------------------------------------------------

// Table is a transient result set passed between collaborators within a run.
// Cell values are string, float64, int64 or nil.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Float returns the numeric value of a cell. Strings are parsed after removing
// thousands separators; nil and unparsable values yield ok=false.
func (t Table) Float(row int, col string) (float64, bool) {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return 0, false
	}
	return ToFloat(t.Rows[row][i])
}

// String returns the cell rendered as text ("" for nil or missing).
func (t Table) String(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return CellText(t.Rows[row][i])
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// ToFloat converts a cell value to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		s = strings.TrimSuffix(s, "%")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CellText renders a cell value as text.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

// Dimension is the breakdown a report is produced for.
type Dimension string

const (
	DimensionCountry     Dimension = "country"
	DimensionManager     Dimension = "manager"
	DimensionProductLine Dimension = "product_line"
)

// Channel identifies a notification destination.
type Channel string

const (
	ChannelMain       Channel = "main"
	ChannelSuccessLog Channel = "success-log"
	ChannelErrorLog   Channel = "error-log"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidate     Stage = "validate_config"
	StageQualityCheck Stage = "quality_check"
	StageExtract      Stage = "extract"
	StageProcess      Stage = "process"
	StageRender       Stage = "render"
	StageUpload       Stage = "upload"
	StagePublish      Stage = "publish"
	StageNotify       Stage = "notify"
)

// State is a state of the runner state machine.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateQualityCheck State = "quality_check"
	StateExtracting   State = "extracting"
	StateProcessing   State = "processing"
	StateRendering    State = "rendering"
	StateUploading    State = "uploading"
	StatePublishing   State = "publishing"
	StateNotifying    State = "notifying"
	StateFailed       State = "failed"
	StateNotifyError  State = "notify_error"
	StateDone         State = "done"
)
