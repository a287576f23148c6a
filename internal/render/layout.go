// Package render draws report tables as PNG charts and removes them once a
// run is finished.
package render

import "reportbot/internal/domain"

// DefaultDPI is the resolution used when none is configured.
const DefaultDPI = 150

// Header and total row background, with white text.
const HeaderColor = "#002859"

// Layout is the figure size in inches and the font sizes in points of one
// report chart.
type Layout struct {
	Width      float64
	Height     float64
	HeaderSize float64
	DataSize   float64
	TotalSize  float64
}

var layouts = map[domain.Dimension]Layout{
	domain.DimensionCountry: {Width: 6, Height: 3, HeaderSize: 12, DataSize: 10, TotalSize: 12},
	domain.DimensionManager: {Width: 6, Height: 2, HeaderSize: 13, DataSize: 11, TotalSize: 13},
}

// LayoutFor returns the layout of dim. Dimensions without their own layout
// use the country layout.
func LayoutFor(dim domain.Dimension) Layout {
	if l, ok := layouts[dim]; ok {
		return l
	}
	return layouts[domain.DimensionCountry]
}

// Pixels returns the figure size in pixels at dpi.
func (l Layout) Pixels(dpi float64) (w, h int) {
	return int(l.Width * dpi), int(l.Height * dpi)
}
