// Package plot draws braille line charts and sparklines for terminal output.
package plot

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values plotted left to right.
type Series struct {
	Name   string
	Values []float64
}

// Options controls plot geometry. Zero values pick defaults: a 0-100 scale,
// a height of 10 rows and the terminal width.
type Options struct {
	Width  int
	Height int
	Min    float64
	Max    float64
	// Guides draws a dotted horizontal rule at each value.
	Guides []float64
	Color  bool
}

const (
	defaultHeight       = 10
	minWidth            = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	guideColor          = "\x1b[2m"
	terminalWidthBackup = 80
	guideDotPeriod      = 4
)

var palette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// PlotSeries renders series on a shared fixed scale. Empty series are skipped.
func PlotSeries(w io.Writer, title string, series []Series, opts Options) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	opts = opts.withDefaults()
	axis := axisWidth(opts)
	if opts.Width <= 0 {
		opts.Width = PlotWidthFor(terminalWidth(), axis)
	}
	if opts.Width < minWidth {
		opts.Width = minWidth
	}

	layers := make([]*canvas, len(kept))
	for i, s := range kept {
		layers[i] = plotLayer(resample(s.Values, opts.Width), opts)
	}
	guides := newCanvas(opts.Width, opts.Height)
	for _, g := range opts.Guides {
		row := scaleRow(g, opts.Min, opts.Max, guides.dotRows())
		for x := 0; x < guides.dotCols(); x++ {
			if x%guideDotPeriod == 0 {
				guides.set(x, row)
			}
		}
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labels := rowLabels(opts)
	for y := 0; y < opts.Height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], axis))
		row.WriteString(axisSeparator)
		for x := 0; x < opts.Width; x++ {
			mask, owner := stack(layers, x, y)
			switch {
			case owner >= 0:
				writeCell(&row, mask|guides.cells[y][x], palette[owner%len(palette)], opts.Color)
			case guides.cells[y][x] != 0:
				writeCell(&row, guides.cells[y][x], guideColor, opts.Color)
			default:
				row.WriteRune(braille(0))
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	if len(kept) > 1 {
		if _, err := fmt.Fprintln(w, legend(kept, opts.Color)); err != nil {
			return err
		}
	}
	return nil
}

// PlotWidthFor returns the plot body width that fits totalWidth next to an
// axis label column of axisLabelWidth cells.
func PlotWidthFor(totalWidth, axisLabelWidth int) int {
	if totalWidth <= 0 {
		return minWidth
	}
	width := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if width < minWidth {
		return minWidth
	}
	return width
}

// Sparkline renders values as a single row of block characters scaled
// between lo and hi.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	if hi <= lo {
		hi = lo + 1
	}
	var b strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range values {
		pos := (v - lo) / (hi - lo)
		idx := int(math.Round(pos * float64(top)))
		idx = max(0, min(idx, top))
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

// UseColor reports whether w is a terminal that accepts ANSI colors.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func (o Options) withDefaults() Options {
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.Max <= o.Min {
		o.Min, o.Max = 0, 100
	}
	return o
}

func plotLayer(values []float64, opts Options) *canvas {
	c := newCanvas(opts.Width, opts.Height)
	prevX, prevY := -1, -1
	for i, v := range values {
		x := i * 2
		y := scaleRow(v, opts.Min, opts.Max, c.dotRows())
		if prevX < 0 {
			c.set(x, y)
		} else {
			c.line(prevX, prevY, x, y)
		}
		prevX, prevY = x, y
	}
	return c
}

func stack(layers []*canvas, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, c := range layers {
		if m := c.cells[y][x]; m != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= m
		}
	}
	return mask, owner
}

func writeCell(b *strings.Builder, mask uint8, color string, useColor bool) {
	if !useColor {
		b.WriteRune(braille(mask))
		return
	}
	b.WriteString(color)
	b.WriteRune(braille(mask))
	b.WriteString(colorReset)
}

func rowLabels(opts Options) []string {
	labels := make([]string, opts.Height)
	labels[0] = formatTick(opts.Max)
	if opts.Height > 2 {
		labels[opts.Height/2] = formatTick((opts.Min + opts.Max) / 2)
	}
	if opts.Height > 1 {
		labels[opts.Height-1] = formatTick(opts.Min)
	}
	return labels
}

func axisWidth(opts Options) int {
	width := 0
	for _, label := range rowLabels(opts) {
		width = max(width, runewidth.StringWidth(label))
	}
	return width
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s", braille(0xff), s.Name)
		if useColor {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// resample stretches or shrinks values to width points. Shrinking averages
// buckets; stretching interpolates linearly.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			sum := 0.0
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx] + (values[idx+1]-values[idx])*frac
		}
	}
	return out
}

// scaleRow maps v onto dot rows, row 0 at the top. Values outside the range
// are clamped.
func scaleRow(v, lo, hi float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - lo) / (hi - lo)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return max(0, min(row, rows-1))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
