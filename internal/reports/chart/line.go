package chart

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
)

// Line draws series as a line over labels. secondary is optional; it is
// rescaled to the primary range and drawn dashed.
func Line(w io.Writer, width, height int, series, secondary []float64, labels []string, opts LineOpts) error {
	if len(series) == 0 {
		return fmt.Errorf("chart: series required")
	}
	if len(series) != len(labels) {
		return fmt.Errorf("chart: labels length must match series")
	}
	if secondary != nil && len(secondary) != len(series) {
		return fmt.Errorf("chart: secondary length must match series")
	}
	f, err := newFrame(width, height, opts.Padding, series)
	if err != nil {
		return err
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	stroke := fallback(opts.StrokeColor, "#2563eb")
	second := fallback(opts.SecondaryColor, "#f59e0b")
	axis := fallback(opts.AxisColor, "#475569")
	grid := fallback(opts.GridColor, "#cbd5f5")

	canvas := svg.New(w)
	canvas.Start(f.width, f.height,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, f.width, f.height),
		`role="img"`,
		attr("aria-label", fallback(opts.Title, "Line chart")))
	canvas.Title(fallback(opts.Title, "Line chart"))
	canvas.Desc(fallback(opts.Description, "Trend data"))

	drawGrid(canvas, f, ticks, axis, grid)

	xs := make([]int, len(series))
	ys := make([]int, len(series))
	for i, v := range series {
		xs[i] = pointX(f, i, len(series))
		ys[i] = f.y(v)
	}
	canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2;stroke-linejoin:round", stroke))

	if secondary != nil {
		drawSecondary(canvas, f, xs, secondary, second)
	}

	if opts.ShowDots {
		for i := range xs {
			canvas.Circle(xs[i], ys[i], 3, "fill:"+stroke)
		}
	}

	stride := labelStride(len(labels))
	for i, label := range labels {
		if i%stride != 0 && i != len(labels)-1 {
			continue
		}
		canvas.Text(xs[i], f.bottom()+14, label, fmt.Sprintf("fill:%s;font-size:10px;text-anchor:middle", axis))
	}
	canvas.End()
	return nil
}

func drawSecondary(canvas *svg.SVG, f frame, xs []int, values []float64, color string) {
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}
	ys := make([]int, len(values))
	for i, v := range values {
		// Map onto the primary axis so both lines share the plot height.
		ys[i] = f.y(f.minVal + (v/maxVal)*(f.maxVal-f.minVal))
	}
	canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5;stroke-dasharray:4,3", color))
}

func drawGrid(canvas *svg.SVG, f frame, ticks int, axis, grid string) {
	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		value := f.minVal + (f.maxVal-f.minVal)*ratio
		y := f.y(value)
		canvas.Line(f.pad, y, f.pad+f.innerW(), y,
			fmt.Sprintf("stroke:%s;stroke-width:0.5;stroke-dasharray:2,4", grid), `aria-hidden="true"`)
		canvas.Text(f.pad-4, y+4, formatTick(value), fmt.Sprintf("fill:%s;font-size:10px;text-anchor:end", axis))
	}
	canvas.Gstyle(fmt.Sprintf("stroke:%s;stroke-width:1", axis))
	canvas.Line(f.pad, f.pad, f.pad, f.bottom())
	canvas.Line(f.pad, f.bottom(), f.pad+f.innerW(), f.bottom())
	canvas.Gend()
}

func pointX(f frame, i, n int) int {
	if n <= 1 {
		return f.pad + f.innerW()/2
	}
	return f.pad + i*f.innerW()/(n-1)
}
