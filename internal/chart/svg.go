package chart

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

var palette = []string{"#2563eb", "#f97316"}

const (
	plotWidth  = 640
	plotHeight = 240
	marginLeft = 48
	marginTop  = 12
	legendH    = 24
)

// SVG renders the chart as an inline <svg> element. An empty chart renders
// a short notice instead.
func SVG(c *BarChart) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if c == nil || c.Empty() {
			_, err := io.WriteString(w, `<p class="muted">No numeric columns to chart.</p>`)
			return err
		}

		l := c.Layout(plotWidth, plotHeight)
		lo, hi := c.Bounds()
		totalW := plotWidth + marginLeft + 8
		totalH := plotHeight + marginTop + legendH + 8

		bw := &errWriter{w: w}
		bw.printf(`<svg xmlns="http://www.w3.org/2000/svg" class="chart" viewBox="0 0 %d %d" role="img">`, totalW, totalH)
		bw.printf(`<g transform="translate(%d,%d)">`, marginLeft, marginTop)

		// y axis labels
		bw.printf(`<text x="-6" y="4" text-anchor="end" font-size="10">%s</text>`, templ.EscapeString(fmtTick(hi)))
		bw.printf(`<text x="-6" y="%d" text-anchor="end" font-size="10">%s</text>`, plotHeight, templ.EscapeString(fmtTick(lo)))
		bw.printf(`<line x1="0" x2="%d" y1="%s" y2="%s" stroke="#888" stroke-width="1"/>`, plotWidth, num(l.BaselineY), num(l.BaselineY))

		for _, b := range l.Bars {
			bw.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s"><title>%s row %d: %s</title></rect>`,
				num(b.X), num(b.Y), num(b.W), num(b.H), palette[b.Series%len(palette)],
				templ.EscapeString(c.Series[b.Series].Name), b.Row, templ.EscapeString(fmtTick(b.Value)))
		}
		bw.printf(`</g>`)

		// legend
		for i, s := range c.Series {
			x := marginLeft + i*160
			y := marginTop + plotHeight + 18
			bw.printf(`<rect x="%d" y="%d" width="10" height="10" fill="%s"/>`, x, y-9, palette[i%len(palette)])
			bw.printf(`<text x="%d" y="%d" font-size="11">%s</text>`, x+14, y, templ.EscapeString(s.Name))
		}
		bw.printf(`</svg>`)
		return bw.err
	})
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func fmtTick(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
