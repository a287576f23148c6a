// Package report turns raw query results into the tables shown in the
// daily report: number formatting, the monthly KPI pivot and achievement
// against target.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"reportbot/internal/domain"
)

// Column name fragments that select a format. Percent takes precedence.
var (
	intColumnPatterns     = []string{"Actual", "Gap", "GMV", "NMV", "RS"}
	percentColumnPatterns = []string{"%"}
)

// FormatInt formats v rounded to an integer with comma separators.
func FormatInt(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return humanize.Comma(int64(math.RoundToEven(v)))
}

// FormatPercent formats v with one decimal and a trailing percent sign.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', 1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)
	sign := ""
	if v < 0 && s != "0.0" {
		sign = "-"
	}
	return sign + humanize.Comma(n) + "." + frac + "%"
}

// Format returns a copy of table with numeric cells of integer and percent
// columns rendered as text. Nil cells become "", non-numeric text is kept.
func Format(table domain.Table) domain.Table {
	out := table.Clone()
	for c, name := range out.Columns {
		format := columnFormat(name)
		if format == nil {
			continue
		}
		for _, row := range out.Rows {
			if c >= len(row) {
				continue
			}
			row[c] = formatCell(row[c], format)
		}
	}
	return out
}

func columnFormat(name string) func(float64) string {
	for _, p := range percentColumnPatterns {
		if strings.Contains(name, p) {
			return FormatPercent
		}
	}
	for _, p := range intColumnPatterns {
		if strings.Contains(name, p) {
			return FormatInt
		}
	}
	return nil
}

func formatCell(v any, format func(float64) string) any {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return ""
	}
	f, ok := domain.ToFloat(v)
	if !ok {
		return v
	}
	return format(f)
}
