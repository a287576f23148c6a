package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"reportbot/internal/domain"
	"reportbot/internal/util"
)

// TableRenderer draws tables as PNG files in an output directory.
type TableRenderer struct {
	outDir  string
	dpi     float64
	regular *truetype.Font
	bold    *truetype.Font
	logger  *slog.Logger
	now     func() time.Time
}

// NewTableRenderer creates a renderer writing to outDir. A non-positive dpi
// selects DefaultDPI.
func NewTableRenderer(outDir string, dpi float64, logger *slog.Logger) (*TableRenderer, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = util.Discard()
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &TableRenderer{
		outDir:  outDir,
		dpi:     dpi,
		regular: regular,
		bold:    bold,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Render draws table with the layout of dim and returns the PNG path. The
// first row is the header and the last row is styled as the total row.
func (r *TableRenderer) Render(ctx context.Context, table domain.Table, dim domain.Dimension) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(table.Columns) == 0 {
		return "", fmt.Errorf("render %s: table has no columns", dim)
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	layout := LayoutFor(dim)
	headerFace := r.face(r.bold, layout.HeaderSize)
	dataFace := r.face(r.regular, layout.DataSize)
	totalFace := r.face(r.bold, layout.TotalSize)
	defer headerFace.Close()
	defer dataFace.Close()
	defer totalFace.Close()

	w, h := layout.Pixels(r.dpi)
	nRows := table.Len() + 1
	rowH := float64(h) / float64(nRows)
	if minH := r.points(math.Max(layout.HeaderSize, layout.DataSize)) * 1.8; rowH < minH {
		rowH = minH
		h = int(math.Ceil(rowH * float64(nRows)))
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	widths := columnWidths(table, float64(w))
	pad := r.points(layout.DataSize) * 0.4

	for ri := 0; ri < nRows; ri++ {
		y := float64(ri) * rowH
		styled := ri == 0 || ri == nRows-1

		faceForRow := dataFace
		switch {
		case ri == 0:
			faceForRow = headerFace
		case styled:
			faceForRow = totalFace
		}
		dc.SetFontFace(faceForRow)

		x := 0.0
		for ci, cw := range widths {
			if styled {
				dc.SetHexColor(HeaderColor)
				dc.DrawRectangle(x, y, cw, rowH)
				dc.Fill()
			}
			dc.SetHexColor("#000000")
			dc.SetLineWidth(1)
			dc.DrawRectangle(x, y, cw, rowH)
			dc.Stroke()

			var text string
			if ri == 0 {
				text = strings.TrimSpace(table.Columns[ci])
			} else {
				text = cellText(table.Rows[ri-1], ci)
			}

			if styled {
				dc.SetHexColor("#ffffff")
			} else {
				dc.SetHexColor("#000000")
			}
			if ri > 0 && isNumericText(text) {
				dc.DrawStringAnchored(text, x+cw-pad, y+rowH/2, 1, 0.35)
			} else {
				dc.DrawStringAnchored(text, x+cw/2, y+rowH/2, 0.5, 0.35)
			}
			x += cw
		}
	}

	path := filepath.Join(r.outDir, fmt.Sprintf("%s_data_%s.png", dim, util.Timestamp(r.now())))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	r.logger.Info("chart rendered", "dimension", string(dim), "rows", table.Len(), "path", path)
	return path, nil
}

func (r *TableRenderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: r.dpi, Hinting: font.HintingFull})
}

// points converts a point size to pixels.
func (r *TableRenderer) points(pt float64) float64 {
	return pt * r.dpi / 72
}

// columnWidths splits total proportionally to the longest text of each
// column, header included.
func columnWidths(table domain.Table, total float64) []float64 {
	lens := make([]int, len(table.Columns))
	sum := 0
	for ci, col := range table.Columns {
		n := utf8.RuneCountInString(col)
		for _, row := range table.Rows {
			if l := utf8.RuneCountInString(cellText(row, ci)); l > n {
				n = l
			}
		}
		lens[ci] = n
		sum += n
	}

	widths := make([]float64, len(lens))
	for i, n := range lens {
		if sum == 0 {
			widths[i] = total / float64(len(lens))
			continue
		}
		widths[i] = total * float64(n) / float64(sum)
	}
	return widths
}

func cellText(row []any, ci int) string {
	if ci >= len(row) {
		return ""
	}
	return strings.TrimSpace(domain.CellText(row[ci]))
}

// isNumericText reports whether s parses as a number once thousands
// separators and percent signs are removed.
func isNumericText(s string) bool {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), "%", "")
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}
