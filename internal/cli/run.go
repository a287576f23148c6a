package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"reportbot/internal/config"
	"reportbot/internal/domain"
	"reportbot/internal/notify"
	"reportbot/internal/pipeline"
	"reportbot/internal/util"
)

var runDateFlag string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the report pipeline once",
	Long: `Run the report pipeline once: validate the configuration, check data
quality, extract, render, upload, publish to the spreadsheet and notify.

Exit status:
	0  the report was published
	1  a stage failed or the quality check did not pass
	2  the configuration is invalid`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDate := time.Now()
		if runDateFlag != "" {
			d, err := time.ParseInLocation(time.DateOnly, runDateFlag, time.Local)
			if err != nil {
				return &exitError{code: pipeline.ExitConfig, err: fmt.Errorf("invalid --date %q: %w", runDateFlag, err)}
			}
			runDate = d
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer := newRunLogger(cfg)
		defer closer.Close()
		util.SetDefault(logger)

		ctx := cmd.Context()
		notifier := newNotifier(cfg, logger)

		if err := cfg.Validate(); err != nil {
			cfgErr := &pipeline.ConfigError{Err: err}
			logger.Error("invalid configuration", "error", err)
			reportStartup(ctx, notifier, logger, notify.ErrorMessage(time.Now(), domain.StageValidate, err))
			return &exitError{code: pipeline.ExitCode(cfgErr), err: cfgErr}
		}

		a, err := wire(ctx, cfg, notifier, logger)
		if err != nil {
			return startupFailed(ctx, notifier, logger, err)
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("closing resources", "error", err)
			}
		}()

		runner, err := pipeline.NewRunner(a.deps)
		if err != nil {
			return err
		}
		rep := runner.Run(ctx, runDate)

		if url := cfg.Metrics.PushgatewayURL; url != "" {
			if err := a.sink.Push(ctx, url, cfg.Metrics.Job); err != nil {
				logger.Warn("metrics push failed", "error", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (%s)\n", rep.RunID, rep.Outcome, rep.Duration.Round(time.Millisecond))
		if rep.Err != nil {
			return &exitError{code: pipeline.ExitCode(rep.Err)}
		}
		return nil
	},
}

// newRunLogger builds the configured logger. When the log file cannot be
// opened it falls back to stdout so the run can still report its failures.
func newRunLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	logger, closer, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.LogFilePath())
	if err == nil {
		return logger, closer
	}
	logger, closer, _ = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	logger.Warn("log file unavailable, logging to stdout only", "file", cfg.LogFilePath(), "error", err)
	return logger, closer
}

// startupFailed reports a collaborator that could not be constructed. A
// quality store that cannot be opened is a quality abort; anything else is a
// failure of the named stage.
func startupFailed(ctx context.Context, n pipeline.Notifier, logger *slog.Logger, err error) error {
	stage := domain.Stage("")
	cause := err
	var se *startupError
	if errors.As(err, &se) {
		stage, cause = se.stage, se.err
	}
	logger.Error("startup failed", "stage", string(stage), "error", cause)

	var (
		msg    notify.Message
		runErr error
	)
	if stage == domain.StageQualityCheck {
		msg = notify.QualityAbortMessage(time.Now(), cause)
		runErr = &pipeline.QualityAbortError{Err: cause}
	} else {
		msg = notify.ErrorMessage(time.Now(), stage, cause)
		runErr = &pipeline.StageError{Stage: stage, Err: cause}
	}
	reportStartup(ctx, n, logger, msg)
	return &exitError{code: pipeline.ExitCode(runErr), err: runErr}
}

// reportStartup sends the error notification for a run that could not start.
func reportStartup(ctx context.Context, n pipeline.Notifier, logger *slog.Logger, msg notify.Message) {
	if err := n.Notify(ctx, domain.ChannelErrorLog, msg); err != nil {
		logger.Warn("notification not delivered", "channel", string(domain.ChannelErrorLog), "error", err)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDateFlag, "date", "", "Run date as YYYY-MM-DD (default today)")
}
