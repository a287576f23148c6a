package pipeline

import (
	"errors"
	"fmt"

	"reportbot/internal/domain"
	"reportbot/internal/report"
)

// ConfigError is a missing or invalid setting. It aborts the run before the
// quality gate is consulted.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// QualityFailError is a failed data-quality check: the metric did not grow
// since the last run of the month.
type QualityFailError struct {
	MonthKey string
	Current  float64
	Baseline float64
	Reason   string
}

func (e *QualityFailError) Error() string {
	return fmt.Sprintf("quality check failed for %s: %s (current %s, last run %s)",
		e.MonthKey, e.Reason, report.FormatInt(e.Current), report.FormatInt(e.Baseline))
}

// QualityAbortError means the quality store could not be read or written.
type QualityAbortError struct {
	Err error
}

func (e *QualityAbortError) Error() string { return "quality check aborted: " + e.Err.Error() }
func (e *QualityAbortError) Unwrap() error { return e.Err }

// StageError is a collaborator failure in a named stage.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Exit codes of the run command.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailed
}

// outcomeFor converts a run error into the run outcome.
func outcomeFor(err error) domain.RunOutcome {
	var (
		failErr  *QualityFailError
		abortErr *QualityAbortError
		stageErr *StageError
		cfgErr   *ConfigError
	)
	switch {
	case err == nil:
		return domain.Pass()
	case errors.As(err, &failErr):
		return domain.Fail(failErr.Reason)
	case errors.As(err, &abortErr):
		return domain.Abort(domain.StageQualityCheck, abortErr.Err)
	case errors.As(err, &stageErr):
		return domain.Abort(stageErr.Stage, stageErr.Err)
	case errors.As(err, &cfgErr):
		return domain.Abort(domain.StageValidate, cfgErr.Err)
	default:
		return domain.Abort("", err)
	}
}
