// Package gsheet reads and writes Google Sheets tabs through the Sheets v4
// API client.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"reportbot/internal/domain"
)

// ErrEmptySheet is returned by Read when a tab has no data rows.
var ErrEmptySheet = errors.New("gsheet: no data in sheet")

// Client reads and replaces spreadsheet tabs.
type Client struct {
	svc *sheets.Service
}

// NewClient creates a Client. The options must carry credentials, for
// example option.WithHTTPClient with an authorised client.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewClientFromFile authenticates with the service-account JSON key at path.
func NewClientFromFile(ctx context.Context, path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", path, err)
	}
	return NewClient(ctx, option.WithHTTPClient(jwt.Client(ctx)))
}

// Read returns the tab as a table whose columns are the header row.
func (c *Client) Read(ctx context.Context, spreadsheetID, tab string) (domain.Table, error) {
	vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, tab).Context(ctx).Do()
	if err != nil {
		return domain.Table{}, fmt.Errorf("reading %s: %w", tab, err)
	}
	if len(vr.Values) < 2 {
		return domain.Table{}, fmt.Errorf("reading %s: %w", tab, ErrEmptySheet)
	}

	table := domain.Table{Columns: make([]string, len(vr.Values[0]))}
	for i, h := range vr.Values[0] {
		table.Columns[i] = domain.CellText(h)
	}
	for _, raw := range vr.Values[1:] {
		row := make([]any, len(table.Columns))
		for i := range row {
			if i < len(raw) {
				row[i] = domain.CellText(raw[i])
			} else {
				row[i] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Replace overwrites the tab with the header and rows of table, creating the
// tab first when it does not exist.
func (c *Client) Replace(ctx context.Context, spreadsheetID, tab string, table domain.Table) error {
	exists, err := c.hasTab(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}
	if !exists {
		if err := c.addTab(ctx, spreadsheetID, tab, table.Len()+10, len(table.Columns)+10); err != nil {
			return err
		}
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, tab, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing %s: %w", tab, err)
	}

	body := &sheets.ValueRange{Range: tab, MajorDimension: "ROWS", Values: values(table)}
	if _, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, tab, body).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing %s: %w", tab, err)
	}
	return nil
}

func (c *Client) hasTab(ctx context.Context, spreadsheetID, tab string) (bool, error) {
	s, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("listing tabs: %w", err)
	}
	for _, sh := range s.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addTab(ctx context.Context, spreadsheetID, tab string, rows, cols int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{
			Title:          tab,
			GridProperties: &sheets.GridProperties{RowCount: int64(rows), ColumnCount: int64(cols)},
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("adding tab %s: %w", tab, err)
	}
	return nil
}

// values converts table to sheet rows with the header first. Nil cells are
// written as empty strings.
func values(table domain.Table) [][]any {
	out := make([][]any, 0, table.Len()+1)
	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	out = append(out, header)
	for _, r := range table.Rows {
		row := make([]any, len(r))
		for i, v := range r {
			if v == nil {
				v = ""
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out
}
