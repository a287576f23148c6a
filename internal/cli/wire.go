package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"reportbot/internal/config"
	"reportbot/internal/domain"
	"reportbot/internal/extract"
	"reportbot/internal/gsheet"
	"reportbot/internal/metrics"
	"reportbot/internal/notify"
	"reportbot/internal/pipeline"
	"reportbot/internal/quality"
	"reportbot/internal/render"
	"reportbot/internal/report"
	"reportbot/internal/store"
	"reportbot/internal/upload"
	"reportbot/internal/util"
)

// app holds the wired collaborators of one run and the resources to release
// afterwards.
type app struct {
	deps    pipeline.Deps
	sink    *metrics.PrometheusSink
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// startupError is a failure to construct a collaborator before the run.
type startupError struct {
	stage domain.Stage
	err   error
}

func (e *startupError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *startupError) Unwrap() error { return e.err }

// newNotifier builds the webhook notifier. SSO and CPI both receive the main
// channel.
func newNotifier(cfg *config.Config, logger *slog.Logger) *notify.WebhookNotifier {
	return notify.NewWebhookNotifier(map[domain.Channel][]string{
		domain.ChannelMain:       cfg.MainWebhooks(),
		domain.ChannelErrorLog:   {cfg.Webhooks.Error},
		domain.ChannelSuccessLog: {cfg.Webhooks.Logging},
	},
		notify.WithTimeout(cfg.NotifyTimeout()),
		notify.WithPacer(util.NewPacer(cfg.NotifyInterval())),
		notify.WithLogger(logger),
	)
}

// wire opens the quality store, connects to the database and builds every
// collaborator of the runner. The configuration must already be valid.
func wire(ctx context.Context, cfg *config.Config, notifier pipeline.Notifier, logger *slog.Logger) (*app, error) {
	a := &app{}
	fail := func(stage domain.Stage, err error) (*app, error) {
		_ = a.Close()
		return nil, &startupError{stage: stage, err: err}
	}

	// The quality store is local and opened before the database is dialled.
	qs, err := store.NewSQLiteStore(cfg.QualityDBPath())
	if err != nil {
		return fail(domain.StageQualityCheck, err)
	}
	a.closers = append(a.closers, qs.Close)

	db, err := extract.Open(ctx, extract.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fail(domain.StageExtract, fmt.Errorf("database: %w", err))
	}
	extractor := extract.NewPostgresExtractor(db)
	a.closers = append(a.closers, extractor.Close)

	sheets, err := gsheet.NewClientFromFile(ctx, cfg.CredentialsPath())
	if err != nil {
		return fail(domain.StagePublish, fmt.Errorf("google sheets: %w", err))
	}

	renderer, err := render.NewTableRenderer(cfg.OutputPath(), float64(cfg.Render.DPI), logger)
	if err != nil {
		return fail(domain.StageRender, err)
	}

	objects, err := upload.NewObjectStoreUploader(upload.ObjectStoreConfig{
		Endpoint:      cfg.ObjectStore.Endpoint,
		AccessKey:     cfg.ObjectStore.AccessKey,
		SecretKey:     cfg.ObjectStore.SecretKey,
		Bucket:        cfg.ObjectStore.Bucket,
		Region:        cfg.ObjectStore.Region,
		UseSSL:        cfg.ObjectStore.UseSSL,
		PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
		PresignExpiry: cfg.PresignExpiry(),
	}, logger)
	if err != nil {
		return fail(domain.StageUpload, err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fail(domain.StageUpload, err)
	}

	var targets pipeline.TargetSource
	if cfg.Sheets.TargetTab != "" {
		targets = pipeline.SheetTab{Client: sheets, SpreadsheetID: cfg.Sheets.SpreadsheetID, Tab: cfg.Sheets.TargetTab}
	}

	a.sink = metrics.NewPrometheusSink(logger)
	a.deps = pipeline.Deps{
		Config:    cfg,
		Metric:    pipeline.SQLMetric{Querier: extractor, Query: cfg.Queries.QualityCheck, Column: cfg.Quality.MetricColumn},
		Gate:      quality.NewGate(qs, logger),
		Extractor: extractor,
		Queries: map[domain.Dimension]string{
			domain.DimensionCountry:     cfg.Queries.Country,
			domain.DimensionManager:     cfg.Queries.Manager,
			domain.DimensionProductLine: cfg.Queries.ProductLine,
		},
		Targets:       targets,
		Processor:     report.NewProcessor(logger),
		Renderer:      renderer,
		ThumbUploader: upload.NewCheveretoUploader(cfg.ImageHost.URL, cfg.ImageHost.APIKey, &http.Client{Timeout: cfg.NotifyTimeout()}, logger),
		FullUploader:  objects,
		Sheet:         pipeline.SheetTab{Client: sheets, SpreadsheetID: cfg.Sheets.SpreadsheetID, Tab: cfg.Sheets.Tab},
		SheetURL:      cfg.Sheets.URL,
		Notifier:      notifier,
		Cleaner:       pipeline.DirCleaner{Dir: cfg.OutputPath(), Logger: logger},
		Metrics:       a.sink,
		Logger:        logger,
	}
	return a, nil
}
