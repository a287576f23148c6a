package report

import (
	"fmt"
	"log/slog"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/util"
)

// Processor shapes the extracted tables for rendering and publishing.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = util.Discard()
	}
	return &Processor{logger: logger}
}

// Process returns the display tables per dimension. The country table is
// compared with targets when they are supplied, the manager table is
// formatted and the product line table is passed through for the sheet.
func (p *Processor) Process(raw map[domain.Dimension]domain.Table, targets *domain.Table, runDate time.Time) (map[domain.Dimension]domain.Table, error) {
	out := make(map[domain.Dimension]domain.Table, len(raw))

	country, ok := raw[domain.DimensionCountry]
	if !ok {
		return nil, fmt.Errorf("no %s data", domain.DimensionCountry)
	}
	if targets != nil {
		actual := country
		if actual.Index(ColMonth) >= 0 {
			pivot, err := PivotKPI(country, util.MonthStart(runDate))
			if err != nil {
				return nil, fmt.Errorf("pivot %s: %w", domain.DimensionCountry, err)
			}
			actual = pivot
		}
		ach, err := AchievementVsTarget(actual, *targets)
		if err != nil {
			return nil, fmt.Errorf("achievement vs target: %w", err)
		}
		out[domain.DimensionCountry] = ach
	} else {
		out[domain.DimensionCountry] = Format(country)
	}

	manager, ok := raw[domain.DimensionManager]
	if !ok {
		return nil, fmt.Errorf("no %s data", domain.DimensionManager)
	}
	out[domain.DimensionManager] = Format(manager)

	if pl, ok := raw[domain.DimensionProductLine]; ok {
		out[domain.DimensionProductLine] = pl
	}

	for dim, t := range out {
		p.logger.Debug("processed table", "dimension", string(dim), "rows", t.Len())
	}
	return out, nil
}
