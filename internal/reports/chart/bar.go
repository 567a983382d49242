package chart

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
)

// Bars draws two series as grouped bars with a legend.
func Bars(w io.Writer, width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) error {
	if len(seriesA) == 0 {
		return fmt.Errorf("chart: series required")
	}
	if len(seriesA) != len(seriesB) || len(seriesA) != len(labels) {
		return fmt.Errorf("chart: series and labels must have equal length")
	}
	f, err := newFrame(width, height, opts.Padding, seriesA, seriesB)
	if err != nil {
		return err
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	colorA := fallback(opts.ColorA, "#22c55e")
	colorB := fallback(opts.ColorB, "#ef4444")
	axis := fallback(opts.AxisColor, "#475569")
	grid := fallback(opts.GridColor, "#cbd5f5")

	canvas := svg.New(w)
	canvas.Start(f.width, f.height,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, f.width, f.height),
		`role="img"`,
		attr("aria-label", fallback(opts.Title, "Bar chart")))
	canvas.Title(fallback(opts.Title, "Bar chart"))
	canvas.Desc(fallback(opts.Description, "Comparison data"))

	drawGrid(canvas, f, ticks, axis, grid)

	group := f.innerW() / len(seriesA)
	barW := group * 2 / 5
	if barW < 1 {
		barW = 1
	}
	zero := f.y(0)
	for i := range seriesA {
		x := f.pad + i*group + (group-2*barW)/2
		drawBar(canvas, x, barW, zero, f.y(seriesA[i]), colorA, labels[i], seriesA[i])
		drawBar(canvas, x+barW, barW, zero, f.y(seriesB[i]), colorB, labels[i], seriesB[i])
	}

	stride := labelStride(len(labels))
	for i, label := range labels {
		if i%stride != 0 {
			continue
		}
		canvas.Text(f.pad+i*group+group/2, f.bottom()+14, label, fmt.Sprintf("fill:%s;font-size:10px;text-anchor:middle", axis))
	}

	legendX := f.width - f.pad - 150
	legend(canvas, legendX, f.pad/2, colorA, fallback(opts.SeriesALabel, "Series A"))
	legend(canvas, legendX+75, f.pad/2, colorB, fallback(opts.SeriesBLabel, "Series B"))
	canvas.End()
	return nil
}

func drawBar(canvas *svg.SVG, x, width, zero, top int, color, label string, value float64) {
	y, h := top, zero-top
	if h < 0 {
		y, h = zero, -h
	}
	canvas.Rect(x, y, width, h, "fill:"+color, attr("aria-label", fmt.Sprintf("%s: %s", label, formatTick(value))))
}

func legend(canvas *svg.SVG, x, y int, color, label string) {
	canvas.Rect(x, y-8, 10, 10, "fill:"+color)
	canvas.Text(x+14, y+1, label, "font-size:10px;fill:#334155")
}
