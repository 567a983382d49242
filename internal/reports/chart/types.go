// Package chart draws the report charts as standalone SVG documents.
package chart

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title          string
	Description    string
	StrokeColor    string
	SecondaryColor string
	AxisColor      string
	GridColor      string
	Padding        int
	ShowDots       bool
	TickCount      int
}

// BarOpts customises the grouped bar chart renderer.
type BarOpts struct {
	Title        string
	Description  string
	SeriesALabel string
	SeriesBLabel string
	ColorA       string
	ColorB       string
	AxisColor    string
	GridColor    string
	Padding      int
	TickCount    int
}

// Chart defaults.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 24
	DefaultTicks   = 6

	maxXLabels = 10
)
