package chart

import (
	"fmt"
	"html"
	"math"
	"strings"
)

// frame is the plotting area inside the padding.
type frame struct {
	width, height int
	pad           int
	minVal        float64
	maxVal        float64
}

func newFrame(width, height, pad int, series ...[]float64) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if pad <= 0 {
		pad = DefaultPadding
	}
	f := frame{width: width, height: height, pad: pad}
	if f.innerW() <= 0 || f.innerH() <= 0 {
		return frame{}, fmt.Errorf("chart: viewport too small")
	}
	first := true
	for _, s := range series {
		for _, v := range s {
			if first {
				f.minVal, f.maxVal = v, v
				first = false
				continue
			}
			f.minVal = math.Min(f.minVal, v)
			f.maxVal = math.Max(f.maxVal, v)
		}
	}
	f.minVal = math.Min(f.minVal, 0)
	f.maxVal = math.Max(f.maxVal, 0)
	if almostEqual(f.maxVal, f.minVal) {
		f.maxVal = f.minVal + 1
	}
	return f, nil
}

func (f frame) innerW() int { return f.width - 2*f.pad }
func (f frame) innerH() int { return f.height - 2*f.pad }
func (f frame) bottom() int { return f.pad + f.innerH() }

func (f frame) y(v float64) int {
	ratio := (v - f.minVal) / (f.maxVal - f.minVal)
	return f.bottom() - int(math.Round(ratio*float64(f.innerH())))
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func labelStride(n int) int {
	if n <= maxXLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(maxXLabels)))
}

// attr renders a raw attribute for svgo; the value is escaped here because
// svgo passes attributes through verbatim.
func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		if almostEqual(v, math.Round(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	}
}
