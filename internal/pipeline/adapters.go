package pipeline

import (
	"context"
	"log/slog"

	"reportbot/internal/domain"
	"reportbot/internal/render"
)

// MetricQuerier runs a single-value metric query.
type MetricQuerier interface {
	Metric(ctx context.Context, query, column string) (float64, error)
}

// SQLMetric is a MetricSource backed by a fixed query and column.
type SQLMetric struct {
	Querier MetricQuerier
	Query   string
	Column  string
}

func (m SQLMetric) Metric(ctx context.Context) (float64, error) {
	return m.Querier.Metric(ctx, m.Query, m.Column)
}

// SheetClient reads and replaces spreadsheet tabs.
type SheetClient interface {
	Read(ctx context.Context, spreadsheetID, tab string) (domain.Table, error)
	Replace(ctx context.Context, spreadsheetID, tab string, table domain.Table) error
}

// SheetTab binds a SheetClient to one tab. It is a SheetWriter, and a
// TargetSource when used on the targets tab.
type SheetTab struct {
	Client        SheetClient
	SpreadsheetID string
	Tab           string
}

func (s SheetTab) Replace(ctx context.Context, table domain.Table) error {
	return s.Client.Replace(ctx, s.SpreadsheetID, s.Tab, table)
}

func (s SheetTab) Targets(ctx context.Context) (*domain.Table, error) {
	t, err := s.Client.Read(ctx, s.SpreadsheetID, s.Tab)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DirCleaner removes rendered charts from an output directory.
type DirCleaner struct {
	Dir    string
	Logger *slog.Logger
}

func (c DirCleaner) Clean() (int, error) {
	n, err := render.Sweep(c.Dir)
	if c.Logger != nil {
		c.Logger.Debug("swept output directory", "dir", c.Dir, "removed", n)
	}
	return n, err
}
